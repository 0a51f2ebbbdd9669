package config

import (
	"fmt"
	"log"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/obralog/fleetmeter/internal/normalize"
	"github.com/spf13/viper"
)

// AliasHolder serves the current column-alias table. Deployments can extend
// or replace the compiled-in aliases from an aliases.yml file, hot reloaded
// on change; fields missing from the file keep their defaults.
type AliasHolder struct {
	current atomic.Value // holds normalize.AliasTable
}

func NewAliasHolder() (*AliasHolder, error) {
	v := viper.New()

	v.SetConfigName("aliases")
	v.SetConfigType("yml")
	v.AddConfigPath("/var/lib/fleetmeter/config") // Volume-mounted config
	v.AddConfigPath("/etc/fleetmeter")            // System config
	v.AddConfigPath(".")                          // Current directory (dev mode)

	v.SetEnvPrefix("FLEETMETER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		// no file found, compiled-in defaults apply
	}

	table, err := aliasTableFromViper(v)
	if err != nil {
		return nil, err
	}

	holder := &AliasHolder{}
	holder.current.Store(table)

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		updated, err := aliasTableFromViper(v)
		if err != nil {
			log.Printf("[aliases] invalid config ignored: %v", err)
			return
		}
		holder.current.Store(updated)
		log.Printf("[aliases] reloaded from %s", e.Name)
	})

	return holder, nil
}

// Table returns the alias table currently in effect.
func (h *AliasHolder) Table() normalize.AliasTable {
	return h.current.Load().(normalize.AliasTable)
}

func aliasTableFromViper(v *viper.Viper) (normalize.AliasTable, error) {
	var raw map[string][]string
	if err := v.UnmarshalKey("aliases", &raw); err != nil {
		return nil, err
	}
	table := normalize.DefaultAliasTable()
	for name, aliases := range raw {
		field, ok := normalize.ParseField(name)
		if !ok {
			return nil, fmt.Errorf("unknown alias field %q", name)
		}
		if len(aliases) == 0 {
			return nil, fmt.Errorf("alias field %q has no aliases", name)
		}
		table[field] = aliases
	}
	return table, nil
}
