package datagrid

import (
	"os"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"
)

// Config is the TOML-decodable grid configuration.
//
//	fit = true
//	show_footer = true
//	row_height = 40
//	throttle = "16ms"
//
//	[[default_sort]]
//	prop = "amount"
//	order = "descending"
//
//	[aggregate_labels]
//	sum = "Total"
//
//	[log]
//	level = "debug"
//	file = "grid.log"
type Config struct {
	Fit                 bool            `toml:"fit"`
	ShowHeader          bool            `toml:"show_header"`
	ShowFooter          bool            `toml:"show_footer"`
	HeaderHeight        int             `toml:"header_height"`
	FooterHeight        int             `toml:"footer_height"`
	RowHeight           int             `toml:"row_height"`
	Overscan            int             `toml:"overscan"`
	ExtraRows           int             `toml:"extra_rows"`
	Lazy                bool            `toml:"lazy"`
	GutterWidth         int             `toml:"gutter_width"`
	MinColumnWidth      int             `toml:"min_column_width"`
	Throttle            Duration        `toml:"throttle"`
	DefaultExpandAll    bool            `toml:"default_expand_all"`
	HighlightCurrentRow bool            `toml:"highlight_current_row"`
	DefaultSort         []SortSpec      `toml:"default_sort"`
	AggregateLabels     AggregateLabels `toml:"aggregate_labels"`
	Log                 LogConfig       `toml:"log"`
}

// SortSpec is one default sort key: a column property and an order name.
type SortSpec struct {
	Prop  string `toml:"prop"`
	Order string `toml:"order"`
}

// Duration decodes TOML strings such as "16ms".
type Duration struct{ time.Duration }

func (d *Duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(string(b))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) { return []byte(d.String()), nil }

// DefaultConfig returns the defaults every loaded config starts from.
func DefaultConfig() Config {
	return Config{
		Fit:             true,
		ShowHeader:      true,
		HeaderHeight:    DefaultHeaderHeight,
		RowHeight:       DefaultRowHeight,
		Overscan:        DefaultOverscan,
		ExtraRows:       DefaultExtraRows,
		Lazy:            true,
		GutterWidth:     DefaultGutterWidth,
		MinColumnWidth:  defaultMinWidth,
		Throttle:        Duration{16 * time.Millisecond},
		AggregateLabels: DefaultAggregateLabels(),
		Log:             LogConfig{Level: "info"},
	}
}

// LoadConfig reads a TOML file over the defaults.
func LoadConfig(path string) (Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errors.Wrap(err, "read config")
	}
	cfg, err := ParseConfig(string(b))
	if err != nil {
		return Config{}, errors.Wrapf(err, "config %s", path)
	}
	return cfg, nil
}

// ParseConfig decodes TOML text over the defaults and validates the result.
// Unknown keys are rejected.
func ParseConfig(text string) (Config, error) {
	cfg := DefaultConfig()
	md, err := toml.Decode(text, &cfg)
	if err != nil {
		return Config{}, errors.Wrap(ErrConfig, err.Error())
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return Config{}, errors.Wrapf(ErrConfig, "unknown key %q", undecoded[0].String())
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks ranges and names. Every failure wraps ErrConfig.
func (c Config) Validate() error {
	switch {
	case c.RowHeight <= 0:
		return errors.Wrapf(ErrConfig, "row_height must be positive, got %d", c.RowHeight)
	case c.HeaderHeight < 0:
		return errors.Wrapf(ErrConfig, "header_height must not be negative, got %d", c.HeaderHeight)
	case c.FooterHeight < 0:
		return errors.Wrapf(ErrConfig, "footer_height must not be negative, got %d", c.FooterHeight)
	case c.Overscan < 0:
		return errors.Wrapf(ErrConfig, "overscan must not be negative, got %d", c.Overscan)
	case c.ExtraRows < 0:
		return errors.Wrapf(ErrConfig, "extra_rows must not be negative, got %d", c.ExtraRows)
	case c.GutterWidth < 0:
		return errors.Wrapf(ErrConfig, "gutter_width must not be negative, got %d", c.GutterWidth)
	case c.MinColumnWidth <= 0:
		return errors.Wrapf(ErrConfig, "min_column_width must be positive, got %d", c.MinColumnWidth)
	case c.Throttle.Duration < 0:
		return errors.Wrapf(ErrConfig, "throttle must not be negative, got %s", c.Throttle)
	}
	for _, s := range c.DefaultSort {
		if s.Prop == "" {
			return errors.Wrap(ErrConfig, "default_sort entry without prop")
		}
		if _, ok := ParseOrder(s.Order); !ok {
			return errors.Wrapf(ErrConfig, "default_sort %s: unknown order %q", s.Prop, s.Order)
		}
	}
	if _, err := parseLevel(c.Log.Level); err != nil {
		return errors.Wrap(ErrConfig, err.Error())
	}
	return nil
}
