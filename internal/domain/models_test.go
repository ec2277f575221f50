package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseGender(t *testing.T) {
	assert.Equal(t, GenderMale, ParseGender("m"))
	assert.Equal(t, GenderFemale, ParseGender(" F "))
	assert.Equal(t, GenderUnknown, ParseGender(""))
	assert.Equal(t, GenderUnknown, ParseGender("other"))
}

func TestAuthor_Experience(t *testing.T) {
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	t.Run("years since phd", func(t *testing.T) {
		a := &Author{PhDYear: IntPtr(2015)}
		assert.Equal(t, 10, a.Experience(now))
	})

	t.Run("unknown phd year", func(t *testing.T) {
		a := &Author{}
		assert.Equal(t, 0, a.Experience(now))
	})

	t.Run("future phd year clamps to zero", func(t *testing.T) {
		a := &Author{PhDYear: IntPtr(2030)}
		assert.Equal(t, 0, a.Experience(now))
	})
}

func TestDefaults(t *testing.T) {
	d := NewDefaultDesign("A1")
	assert.Equal(t, "A1", d.ArticleID)
	assert.True(t, d.IsEmpirical)
	assert.False(t, d.ReplicationAvailable)
	assert.False(t, d.LegalConstraints)
	assert.Nil(t, d.PrimaryMethod)

	m := NewDefaultMetrics("A1")
	assert.Zero(t, m.CitationCount)
	assert.Zero(t, m.CitationVelocity)
	assert.Zero(t, m.AltmetricScore)

	s := NewPlaceholderStatistic("A1", nil)
	assert.True(t, s.IsPlaceholder())
	name := PlaceholderTestName
	assert.True(t, NewPlaceholderStatistic("A1", &name).IsPlaceholder())
	other := "Treatment Effect"
	assert.False(t, (&Statistic{TestName: &other}).IsPlaceholder())
}

func TestArticleAuthor_Order(t *testing.T) {
	assert.Equal(t, 0, (&ArticleAuthor{}).Order())
	assert.Equal(t, 3, (&ArticleAuthor{AuthorOrder: IntPtr(3)}).Order())
}

func TestStringPtr(t *testing.T) {
	assert.Nil(t, StringPtr("  "))
	require.NotNil(t, StringPtr(" x "))
	assert.Equal(t, "x", *StringPtr(" x "))
	assert.Equal(t, "", Deref(nil))
}

func TestErrors(t *testing.T) {
	t.Run("not found unwraps to sentinel", func(t *testing.T) {
		err := fmt.Errorf("wrapped: %w", NewNotFoundError(EntityArticle, "A1"))
		assert.True(t, errors.Is(err, ErrNotFound))
		assert.Equal(t, "wrapped: article not found: A1", err.Error())
	})

	t.Run("validation unwraps to invalid input", func(t *testing.T) {
		err := NewValidationError("title", "is required")
		assert.True(t, errors.Is(err, ErrInvalidInput))
		assert.Equal(t, "validation error: title: is required", err.Error())
	})

	t.Run("constraint error keeps driver message and cause", func(t *testing.T) {
		cause := errors.New("driver")
		err := NewConstraintError(ConstraintForeignKey, "articles_journal_id_fkey",
			`insert or update on table "articles" violates foreign key constraint "articles_journal_id_fkey"`, cause)
		assert.True(t, errors.Is(err, ErrConstraint))
		assert.True(t, errors.Is(err, cause))
		assert.Contains(t, err.Error(), "violates foreign key constraint")
		assert.Contains(t, err.Hint(), "journal does not exist")
	})
}

func TestConstraintHint(t *testing.T) {
	tests := []struct {
		message string
		want    string
	}{
		{`violates foreign key constraint "articles_discipline_id_fkey"`, "discipline does not exist"},
		{`violates foreign key constraint "authors_current_institution_id_fkey"`, "institution does not exist"},
		{`violates foreign key constraint "article_authors_author_id_fkey"`, "author does not exist"},
		{`duplicate key value violates unique constraint "journals_pkey"`, "already exists"},
		{`null value in column "title" violates not-null constraint`, "Required fields are missing"},
	}
	for _, tt := range tests {
		assert.Contains(t, ConstraintHint(tt.message), tt.want, tt.message)
	}
	assert.Empty(t, ConstraintHint("connection reset by peer"))
}

func TestSchemaValidate(t *testing.T) {
	authors, ok := SchemaFor("authors")
	require.True(t, ok)

	t.Run("valid payload", func(t *testing.T) {
		err := authors.Validate(map[string]any{
			"id": "smith-john", "full_name": "John Smith", "gender": "M", "phd_year": float64(2010),
		}, false)
		assert.NoError(t, err)
	})

	t.Run("missing required field", func(t *testing.T) {
		err := authors.Validate(map[string]any{"id": "x"}, false)
		var ve *ValidationError
		require.ErrorAs(t, err, &ve)
		assert.Equal(t, "full_name", ve.Field)
	})

	t.Run("partial update skips absent required fields", func(t *testing.T) {
		assert.NoError(t, authors.Validate(map[string]any{"gender": "F"}, true))
	})

	t.Run("strict select rejects unknown option", func(t *testing.T) {
		err := authors.Validate(map[string]any{"id": "x", "full_name": "X", "gender": "Q"}, false)
		assert.ErrorIs(t, err, ErrInvalidInput)
	})

	t.Run("number field rejects text", func(t *testing.T) {
		err := authors.Validate(map[string]any{"id": "x", "full_name": "X", "phd_year": "soon"}, false)
		assert.ErrorIs(t, err, ErrInvalidInput)
	})

	t.Run("boolean field rejects strings", func(t *testing.T) {
		design, _ := SchemaFor("article-design")
		err := design.Validate(map[string]any{"article_id": "A1", "is_empirical": "yes"}, false)
		assert.ErrorIs(t, err, ErrInvalidInput)
	})
}

func TestSchemaJSON(t *testing.T) {
	s, ok := SchemaFor("statistics")
	require.True(t, ok)
	raw, err := json.Marshal(s)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"type":"checkbox"`)
	assert.Contains(t, string(raw), `"type":"number"`)
	assert.Contains(t, SchemaResources(), "funding-agencies")

	t.Run("decodes its own encoding", func(t *testing.T) {
		var decoded Schema
		require.NoError(t, json.Unmarshal(raw, &decoded))
		assert.Equal(t, s.Resource, decoded.Resource)
		require.Len(t, decoded.Fields, len(s.Fields))
		for i, f := range s.Fields {
			assert.Equal(t, f.Kind, decoded.Fields[i].Kind, f.Name)
		}
	})

	t.Run("rejects unknown kinds", func(t *testing.T) {
		var k FieldKind
		assert.Error(t, json.Unmarshal([]byte(`"slider"`), &k))
		assert.Error(t, json.Unmarshal([]byte(`3`), &k))
		require.NoError(t, json.Unmarshal([]byte(`"textarea"`), &k))
		assert.Equal(t, FieldMultiline, k)
	})
}

func TestSchemaNormalize(t *testing.T) {
	articles, ok := SchemaFor("articles")
	require.True(t, ok)

	values := map[string]any{
		"title":            "  kept as typed ",
		"publication_year": " 2021 ",
		"discipline_id":    "",
		"doi":              "",
	}
	articles.Normalize(values)

	assert.Equal(t, json.Number("2021"), values["publication_year"])
	assert.Nil(t, values["discipline_id"])
	assert.Equal(t, "", values["doi"])
	assert.Equal(t, "  kept as typed ", values["title"])

	raw, err := json.Marshal(values)
	require.NoError(t, err)
	var a Article
	require.NoError(t, json.Unmarshal(raw, &a))
	require.NotNil(t, a.PublicationYear)
	assert.Equal(t, 2021, *a.PublicationYear)
	assert.Nil(t, a.DisciplineID)
}
