// Package config loads the kernel daemon's YAML configuration.
package config

import (
	"fmt"
	"os"

	"github.com/c2h5oh/datasize"
	"gopkg.in/yaml.v3"

	"github.com/teachos/ipckernel/internal/logging"
	"github.com/teachos/ipckernel/internal/pagepool"
)

// Config is the top-level configuration for the ipcd daemon.
type Config struct {
	// PagePool is the size of each of the kernel's two physical page pools:
	// one backs every pipe, the other every ring.
	PagePool datasize.ByteSize `yaml:"page_pool"`

	// AddressSpaceBudget is how much of a process's simulated virtual
	// address space is available for ring mappings, each of which costs
	// one book page plus two copies of the payload.
	AddressSpaceBudget datasize.ByteSize `yaml:"address_space_budget"`

	Logging logging.Config `yaml:"logging"`
}

// Default returns a Config sized generously enough to run the demo workload
// and the full test suite's rapid open/close stress scenarios.
func Default() *Config {
	return &Config{
		PagePool:           256 * datasize.MB,
		AddressSpaceBudget: 64 * datasize.MB,
	}
}

// Load reads and decodes a Config from path.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open: %w", err)
	}
	defer f.Close()

	cfg := Default()
	if err := yaml.NewDecoder(f).Decode(cfg); err != nil {
		return nil, fmt.Errorf("config: decode: %w", err)
	}
	return cfg, nil
}

// PagePoolPages returns the configured page pool size in pages.
func (c *Config) PagePoolPages() pagepool.PageID {
	return pagepool.PageID(uint64(c.PagePool) / pagepool.PageSize)
}

// AddressSpaceBudgetPages returns the configured per-process address-space
// budget in pages.
func (c *Config) AddressSpaceBudgetPages() int {
	return int(uint64(c.AddressSpaceBudget) / pagepool.PageSize)
}
