package seed

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"strings"

	"welfareportal/pkg/types"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

//go:embed schemes.yaml
var catalogYAML []byte

type catalogFile struct {
	Schemes []catalogScheme `yaml:"schemes"`
}

type catalogScheme struct {
	ID          string            `yaml:"id"`
	Title       string            `yaml:"title"`
	Category    string            `yaml:"category"`
	Ministry    string            `yaml:"ministry"`
	Description string            `yaml:"description"`
	Benefits    string            `yaml:"benefits"`
	Eligibility string            `yaml:"eligibility"`
	State       string            `yaml:"state"`
	Documents   []catalogDocument `yaml:"documents"`
}

type catalogDocument struct {
	Name     string `yaml:"name"`
	Required bool   `yaml:"required"`
}

// Entry is one scheme of the catalog with its document requirements.
type Entry struct {
	Scheme    *types.Scheme
	Documents []*types.SchemeDocument
}

type SchemeWriter interface {
	UpsertScheme(ctx context.Context, scheme *types.Scheme) error
	DeactivateMissing(ctx context.Context, keep []string) (int64, error)
}

type DocumentWriter interface {
	ReplaceDocumentRequirements(ctx context.Context, schemeID string, docs []*types.SchemeDocument) error
}

// Catalog returns the embedded scheme catalog.
func Catalog() ([]Entry, error) {
	return ParseCatalog(catalogYAML)
}

// ParseCatalog parses and checks a scheme catalog.
func ParseCatalog(data []byte) ([]Entry, error) {
	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse scheme catalog: %w", err)
	}

	if len(file.Schemes) == 0 {
		return nil, errors.New("scheme catalog is empty")
	}

	seen := make(map[string]bool, len(file.Schemes))
	entries := make([]Entry, 0, len(file.Schemes))

	for i, s := range file.Schemes {
		if s.ID == "" || s.Title == "" || s.Category == "" {
			return nil, fmt.Errorf("scheme %d: id, title and category are required", i)
		}
		if seen[s.ID] {
			return nil, fmt.Errorf("scheme %s: duplicate id", s.ID)
		}
		seen[s.ID] = true

		entry := Entry{
			Scheme: &types.Scheme{
				ID:          s.ID,
				Title:       s.Title,
				Description: strings.TrimSpace(s.Description),
				Category:    s.Category,
				Ministry:    optional(s.Ministry),
				Benefits:    optional(s.Benefits),
				Eligibility: optional(s.Eligibility),
				State:       optional(s.State),
				IsActive:    true,
			},
			Documents: make([]*types.SchemeDocument, 0, len(s.Documents)),
		}

		names := make(map[string]bool, len(s.Documents))
		for j, d := range s.Documents {
			if d.Name == "" {
				return nil, fmt.Errorf("scheme %s: document %d has no name", s.ID, j)
			}
			if names[d.Name] {
				return nil, fmt.Errorf("scheme %s: duplicate document %q", s.ID, d.Name)
			}
			names[d.Name] = true

			entry.Documents = append(entry.Documents, &types.SchemeDocument{
				SchemeID:     s.ID,
				Name:         d.Name,
				Required:     d.Required,
				DisplayOrder: j + 1,
			})
		}

		entries = append(entries, entry)
	}

	return entries, nil
}

// SeedSchemes syncs the database with the embedded catalog. Schemes are
// upserted with their document requirements, and active schemes missing from
// the catalog are deactivated rather than deleted so existing applications
// keep their reference.
func SeedSchemes(ctx context.Context, logger logrus.FieldLogger, schemes SchemeWriter, documents DocumentWriter) error {
	entries, err := Catalog()
	if err != nil {
		return err
	}

	logger.WithField("schemes", len(entries)).Info("starting scheme sync")

	keep := make([]string, 0, len(entries))
	for _, entry := range entries {
		if err := schemes.UpsertScheme(ctx, entry.Scheme); err != nil {
			return fmt.Errorf("failed to upsert scheme %s: %w", entry.Scheme.ID, err)
		}
		if err := documents.ReplaceDocumentRequirements(ctx, entry.Scheme.ID, entry.Documents); err != nil {
			return fmt.Errorf("failed to replace documents for scheme %s: %w", entry.Scheme.ID, err)
		}

		logger.WithFields(logrus.Fields{
			"scheme_id": entry.Scheme.ID,
			"title":     entry.Scheme.Title,
			"documents": len(entry.Documents),
		}).Info("scheme upserted")

		keep = append(keep, entry.Scheme.ID)
	}

	deactivated, err := schemes.DeactivateMissing(ctx, keep)
	if err != nil {
		return fmt.Errorf("failed to deactivate removed schemes: %w", err)
	}

	logger.WithFields(logrus.Fields{
		"upserted":    len(keep),
		"deactivated": deactivated,
	}).Info("scheme sync complete")

	return nil
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
