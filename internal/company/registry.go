// Package company defines the company registry: the primary company under
// assessment and the benchmark companies it is compared against.
package company

import (
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// namespacePrefix namespaces all vector data written by this pipeline so it
// can coexist with other datasets in a shared store.
const namespacePrefix = "GAP_"

// Company is one entry in the registry.
type Company struct {
	// Key is the short identifier used for namespaces and CLI arguments.
	Key  string `yaml:"key"`
	Name string `yaml:"name"`
	// SiteURLs are scraped during extraction.
	SiteURLs []string `yaml:"site_urls"`
	// DocsDir optionally holds local documents (txt/md/html) to ingest.
	DocsDir string `yaml:"docs_dir"`
}

// Namespace returns the vector store namespace for this company.
func (c Company) Namespace() string {
	return Namespace(c.Key)
}

// Registry holds the primary company and its benchmarks.
type Registry struct {
	Primary    Company   `yaml:"primary"`
	Benchmarks []Company `yaml:"benchmarks"`
}

// LoadRegistry reads the registry from a YAML file.
func LoadRegistry(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "company: read registry")
	}

	var reg Registry
	if err := yaml.Unmarshal(data, &reg); err != nil {
		return nil, eris.Wrap(err, "company: parse registry")
	}

	if err := reg.Validate(); err != nil {
		return nil, err
	}
	return &reg, nil
}

// Validate checks the registry for entries that would break extraction or
// namespace routing later.
func (r *Registry) Validate() error {
	if r.Primary.Key == "" {
		return eris.New("company: primary company key required")
	}

	seen := map[string]bool{r.Primary.Key: true}
	for _, b := range r.Benchmarks {
		if b.Key == "" {
			return eris.New("company: benchmark with empty key")
		}
		if seen[b.Key] {
			return eris.Errorf("company: duplicate key %q", b.Key)
		}
		seen[b.Key] = true
	}
	return nil
}

// All returns the primary followed by the benchmarks, in registry order.
func (r *Registry) All() []Company {
	out := make([]Company, 0, len(r.Benchmarks)+1)
	out = append(out, r.Primary)
	out = append(out, r.Benchmarks...)
	return out
}

// Find returns the company with the given key, primary included.
func (r *Registry) Find(key string) (Company, bool) {
	for _, c := range r.All() {
		if c.Key == key {
			return c, true
		}
	}
	return Company{}, false
}

// BenchmarkNamespaces returns the benchmark namespaces in registry order.
func (r *Registry) BenchmarkNamespaces() []string {
	out := make([]string, len(r.Benchmarks))
	for i, b := range r.Benchmarks {
		out[i] = b.Namespace()
	}
	return out
}

// Namespace derives the vector store namespace for a company key.
func Namespace(key string) string {
	return namespacePrefix + strings.ToUpper(key)
}

// Label turns a namespace back into a display label for reports, stripping
// the internal prefix.
func Label(namespace string) string {
	return strings.TrimPrefix(namespace, namespacePrefix)
}
