package kb

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// Service is one entry of the knowledge base: a sellable service with the
// grounding text injected into generation prompts and the keywords that
// route queries to it.
type Service struct {
	ServiceName string   `json:"service_name"`
	Description string   `json:"description"`
	Keywords    []string `json:"keywords"`
}

// Catalog is the ordered, read-only service list loaded once at startup.
//
// Declaration order is part of the contract: Resolve scans entries front to
// back and the earliest-declared match wins, so reordering the source file
// changes routing behavior for queries that hit keywords of several
// services.
type Catalog struct {
	items []Service
}

// NewCatalog builds a catalog preserving the supplied order.
func NewCatalog(items []Service) *Catalog {
	return &Catalog{items: append([]Service(nil), items...)}
}

// Load reads a catalog from a JSON file (an ordered array of services).
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read knowledge base file: %w", err)
	}

	var items []Service
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("failed to parse knowledge base file %s: %w", path, err)
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("knowledge base file %s contains no services", path)
	}

	return NewCatalog(items), nil
}

// List returns the services in declaration order.
func (c *Catalog) List() []Service {
	return append([]Service(nil), c.items...)
}

// Len reports the number of services.
func (c *Catalog) Len() int {
	return len(c.items)
}

// Resolve matches a query against the catalog by keyword containment. The
// query is lower-cased and every entry's keywords are checked in declaration
// order; the first entry with any keyword appearing as a substring wins.
// A nil result means no service matched, which is a valid outcome rather
// than an error. Resolve never mutates the catalog.
func (c *Catalog) Resolve(query string) *Service {
	lowered := strings.ToLower(query)
	for i := range c.items {
		for _, keyword := range c.items[i].Keywords {
			if keyword == "" {
				continue
			}
			if strings.Contains(lowered, keyword) {
				svc := c.items[i]
				return &svc
			}
		}
	}
	return nil
}

// Seed provides the default Createlo service catalog used when no KB_PATH
// is configured.
func Seed() []Service {
	return []Service{
		{
			ServiceName: "SEO",
			Description: "We improve your search engine ranking so customers find your business first. Our SEO packages cover keyword research, on-page optimization, and monthly performance reports.",
			Keywords:    []string{"seo", "ranking", "search engine", "google ranking"},
		},
		{
			ServiceName: "Social Media Marketing",
			Description: "We plan, create, and manage content for Instagram, Facebook, and LinkedIn, growing your audience with a consistent posting calendar and paid campaign management.",
			Keywords:    []string{"social media", "instagram", "facebook", "linkedin", "posts"},
		},
		{
			ServiceName: "Web Development",
			Description: "We design and build fast, mobile-friendly websites and landing pages, including e-commerce stores, with hosting and maintenance handled for you.",
			Keywords:    []string{"website", "web development", "landing page", "e-commerce", "online store"},
		},
		{
			ServiceName: "Branding",
			Description: "We craft logos, brand guidelines, and visual identities that make your business memorable across print and digital channels.",
			Keywords:    []string{"branding", "logo", "brand identity", "design"},
		},
		{
			ServiceName: "Google Ads",
			Description: "We set up and optimize Google Ads campaigns with transparent budgets, conversion tracking, and weekly tuning to lower your cost per lead.",
			Keywords:    []string{"google ads", "ppc", "adwords", "paid search", "ads"},
		},
	}
}
