package repository

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/helixir/research-catalog/internal/domain"
)

// LoadDataset reads every catalog table in a single batch round trip.
// Each collection uses the same ordering as its List method.
func (s *Store) LoadDataset(ctx context.Context) (*domain.Dataset, error) {
	batch := &pgx.Batch{}
	s.Disciplines.queueList(batch)
	s.Institutions.queueList(batch)
	s.Journals.queueList(batch)
	s.FundingAgencies.queueList(batch)
	s.Authors.queueList(batch)
	s.Articles.queueList(batch)
	s.Designs.queueList(batch)
	s.Metrics.queueList(batch)
	s.Statistics.queueList(batch)
	s.ArticleAuthors.queueList(batch)
	s.ArticleFunding.queueList(batch)

	br := s.db.SendBatch(ctx, batch)
	defer br.Close()

	var (
		ds  domain.Dataset
		err error
	)
	if ds.Disciplines, err = s.Disciplines.readBatchList(br); err != nil {
		return nil, err
	}
	if ds.Institutions, err = s.Institutions.readBatchList(br); err != nil {
		return nil, err
	}
	if ds.Journals, err = s.Journals.readBatchList(br); err != nil {
		return nil, err
	}
	if ds.FundingAgencies, err = s.FundingAgencies.readBatchList(br); err != nil {
		return nil, err
	}
	if ds.Authors, err = s.Authors.readBatchList(br); err != nil {
		return nil, err
	}
	if ds.Articles, err = s.Articles.readBatchList(br); err != nil {
		return nil, err
	}
	if ds.Designs, err = s.Designs.readBatchList(br); err != nil {
		return nil, err
	}
	if ds.Metrics, err = s.Metrics.readBatchList(br); err != nil {
		return nil, err
	}
	if ds.Statistics, err = s.Statistics.readBatchList(br); err != nil {
		return nil, err
	}
	if ds.ArticleAuthors, err = s.ArticleAuthors.readBatchList(br); err != nil {
		return nil, err
	}
	if ds.ArticleFunding, err = s.ArticleFunding.readBatchList(br); err != nil {
		return nil, err
	}
	return &ds, nil
}

// LoadConsistentDataset loads the dataset inside a read-only repeatable-read
// transaction so every collection reflects the same point in time.
func LoadConsistentDataset(ctx context.Context, runner SnapshotRunner) (*domain.Dataset, error) {
	var ds *domain.Dataset
	err := runner.WithSnapshotTransaction(ctx, func(tx pgx.Tx) error {
		var err error
		ds, err = NewStore(tx).LoadDataset(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}
	return ds, nil
}

// ConsistentLoader loads datasets with LoadConsistentDataset.
// It implements catalog.Loader.
type ConsistentLoader struct {
	Runner SnapshotRunner
}

// LoadDataset loads every table at one point in time.
func (l ConsistentLoader) LoadDataset(ctx context.Context) (*domain.Dataset, error) {
	return LoadConsistentDataset(ctx, l.Runner)
}
