package domain

// Dataset is a full copy of every catalog collection, in list order.
type Dataset struct {
	Disciplines     []*Discipline     `json:"disciplines"`
	Institutions    []*Institution    `json:"institutions"`
	Journals        []*Journal        `json:"journals"`
	FundingAgencies []*FundingAgency  `json:"funding_agencies"`
	Authors         []*Author         `json:"authors"`
	Articles        []*Article        `json:"articles"`
	Designs         []*ArticleDesign  `json:"article_design"`
	Metrics         []*ArticleMetrics `json:"article_metrics"`
	Statistics      []*Statistic      `json:"statistics"`
	ArticleAuthors  []*ArticleAuthor  `json:"article_authors"`
	ArticleFunding  []*ArticleFunding `json:"article_funding"`
}
