// Package catalog seeds shop items from a YAML file.
package catalog

import (
	"context"
	"io"
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/poonnyworld/pbz-bots/internal/domain"
)

type File struct {
	Items []Entry `yaml:"items"`
}

type Entry struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Cost        int64  `yaml:"cost"`
	Stock       *int   `yaml:"stock"`
	Active      *bool  `yaml:"active"`
}

// Item converts the entry; stock defaults to unlimited and active to true.
func (e Entry) Item() domain.Item {
	it := domain.Item{
		Name:        e.Name,
		Description: e.Description,
		Cost:        e.Cost,
		Stock:       domain.UnlimitedStock,
		IsActive:    true,
	}
	if e.Stock != nil {
		it.Stock = *e.Stock
	}
	if e.Active != nil {
		it.IsActive = *e.Active
	}
	return it
}

func Parse(r io.Reader) ([]domain.Item, error) {
	var f File
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && err != io.EOF {
		return nil, errors.Wrap(err, "catalog: decode")
	}
	items := make([]domain.Item, 0, len(f.Items))
	for i, e := range f.Items {
		it := e.Item()
		if err := it.Validate(); err != nil {
			return nil, errors.Wrapf(err, "catalog: item %d (%q)", i, e.Name)
		}
		items = append(items, it)
	}
	return items, nil
}

func Load(path string) ([]domain.Item, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "catalog: open")
	}
	defer f.Close()
	return Parse(f)
}

type Store interface {
	ListItems(ctx context.Context) ([]domain.Item, error)
	CreateItem(ctx context.Context, item *domain.Item) error
}

// Seed creates the items whose names are not yet in the catalog and returns
// how many were added. Existing items are left as the administrator set them.
func Seed(ctx context.Context, s Store, items []domain.Item) (int, error) {
	existing, err := s.ListItems(ctx)
	if err != nil {
		return 0, err
	}
	known := make(map[string]bool, len(existing))
	for _, it := range existing {
		known[it.Name] = true
	}

	added := 0
	for i := range items {
		if known[items[i].Name] {
			continue
		}
		if err := s.CreateItem(ctx, &items[i]); err != nil {
			return added, err
		}
		known[items[i].Name] = true
		added++
	}
	return added, nil
}
