package loader

import (
	"path/filepath"
	"strings"

	"github.com/bruceeconomista/balanca-comercial-sc-v2/internal/config"
	"github.com/bruceeconomista/balanca-comercial-sc-v2/internal/trade"
)

// Options control how a single file is parsed
type Options struct {
	// Delimiter separates CSV fields. Zero means ';'.
	Delimiter rune
	// Encoding is config.EncodingUTF8 or config.EncodingLatin1.
	Encoding string
	// Sheet selects the XLSX sheet. Empty means the first sheet.
	Sheet string
	// UF keeps only rows of this state. Empty keeps every state.
	UF string
	// DefaultFlow is assigned to rows when the file has no flow column.
	DefaultFlow trade.Flow
	// MaxSampleErrors caps the row errors kept in a FileReport.
	MaxSampleErrors int
}

// DefaultOptions returns the options used for raw ComexStat extracts
func DefaultOptions() Options {
	return Options{
		Delimiter:       ';',
		Encoding:        config.EncodingUTF8,
		UF:              config.DefaultUF,
		MaxSampleErrors: 10,
	}
}

// OptionsFromConfig builds loader options from the data section of the config
func OptionsFromConfig(cfg config.DataConfig) Options {
	opts := DefaultOptions()
	opts.Delimiter = cfg.DelimiterRune()
	opts.Encoding = cfg.Encoding
	opts.Sheet = cfg.Sheet
	opts.UF = cfg.UF
	return opts
}

func (o Options) withDefaults() Options {
	if o.Delimiter == 0 {
		o.Delimiter = ';'
	}
	if o.Encoding == "" {
		o.Encoding = config.EncodingUTF8
	}
	if o.MaxSampleErrors <= 0 {
		o.MaxSampleErrors = 10
	}
	o.UF = strings.ToUpper(strings.TrimSpace(o.UF))
	return o
}

// FlowFromFileName guesses the flow from ComexStat file names such as
// EXP_2024.csv, IMP_COMPLETA.zip or exportacoes_sc.xlsx.
func FlowFromFileName(path string) (trade.Flow, bool) {
	name := trade.CleanColumnName(strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)))
	for _, part := range strings.Split(name, "_") {
		if f, err := trade.ParseFlow(part); err == nil && len(part) > 1 {
			return f, true
		}
	}
	return "", false
}
