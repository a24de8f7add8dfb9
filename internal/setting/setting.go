// Package setting loads the board setting file that selects the board
// variant and the connectors in use.
package setting

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"slices"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/KevinKickass/HotmockBridge/internal/hotmock"
	"github.com/KevinKickass/HotmockBridge/internal/ports"
)

var ErrInvalidSetting = errors.New("setting: invalid board setting")

// File is the on-disk format.
type File struct {
	Board      string           `yaml:"board" json:"board"`
	Connectors map[string][]int `yaml:"connectors,omitempty" json:"connectors,omitempty"`
}

// Setting is a validated board setting.
type Setting struct {
	Board  hotmock.BoardType
	Layout hotmock.Layout
	Active ports.ActiveSet
	// AO lists analog outputs marked in use. The firmware has no wire type
	// for them yet, so they get no ports.
	AO []int
}

// onboard sensors are always active.
var onboard = []hotmock.Address{
	{Type: hotmock.GS, ID: 1},
	{Type: hotmock.TS, ID: 1},
}

type Loader struct {
	validator *Validator
	logger    *zap.Logger
}

func NewLoader(logger *zap.Logger) (*Loader, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	validator, err := NewValidator()
	if err != nil {
		return nil, fmt.Errorf("failed to create validator: %w", err)
	}

	return &Loader{validator: validator, logger: logger}, nil
}

// Load reads and validates a setting file.
func (l *Loader) Load(path string) (*Setting, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read setting: %w", err)
	}

	s, err := l.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	l.logger.Info("Board setting loaded",
		zap.String("path", path),
		zap.Stringer("board", s.Board),
		zap.Int("connectors", len(s.Active)))

	return s, nil
}

// Parse validates YAML setting data against the schema and the board layout.
func (l *Loader) Parse(data []byte) (*Setting, error) {
	var doc map[string]interface{}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: invalid YAML: %w", ErrInvalidSetting, err)
	}

	// Schema wird auf der JSON-Darstellung geprüft
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidSetting, err)
	}
	if err := l.validator.ValidateJSON(raw); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidSetting, err)
	}

	var f File
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidSetting, err)
	}

	return Build(f)
}

// Build checks f against the layout of its board.
func Build(f File) (*Setting, error) {
	board, err := hotmock.ParseBoardType(f.Board)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidSetting, err)
	}

	layout, err := hotmock.LayoutFor(board)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidSetting, err)
	}

	s := &Setting{Board: board, Layout: layout}
	addrs := slices.Clone(onboard)

	var errs []error

	// feste Reihenfolge für reproduzierbare Fehlermeldungen
	codes := make([]string, 0, len(f.Connectors))
	for code := range f.Connectors {
		codes = append(codes, code)
	}
	slices.Sort(codes)

	for _, code := range codes {
		ids := f.Connectors[code]

		if code == "AO" {
			for _, id := range ids {
				if !layout.AO.Contains(id) {
					errs = append(errs, fmt.Errorf("AO%02d not available on %s board", id, board))
					continue
				}
				s.AO = append(s.AO, id)
			}
			continue
		}

		t, err := hotmock.ParseConnectorType(code)
		if err != nil || t == hotmock.GS || t == hotmock.TS {
			errs = append(errs, fmt.Errorf("connector type %q cannot be configured", code))
			continue
		}

		seen := make(map[int]bool, len(ids))
		for _, id := range ids {
			a := hotmock.Address{Type: t, ID: id}
			if seen[id] {
				errs = append(errs, fmt.Errorf("%s listed twice", a))
				continue
			}
			seen[id] = true
			if !layout.Contains(t, id) {
				errs = append(errs, fmt.Errorf("%s not available on %s board", a, board))
				continue
			}
			addrs = append(addrs, a)
		}
	}

	if len(errs) > 0 {
		return nil, fmt.Errorf("%w: %w", ErrInvalidSetting, errors.Join(errs...))
	}

	s.Active = ports.NewActiveSet(addrs...)
	slices.Sort(s.AO)
	return s, nil
}
