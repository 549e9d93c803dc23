// Package menu reads the context-menu settings shared with the file-manager
// extension and turns a chosen menu item into a trigger instruction.
package menu

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mattjoyce/tooly/internal/protocol"
)

// Separator is the entry in Order that renders as a menu separator.
const Separator = "%sprt%"

// Target types understood by Item.Matches. Anything else is a comma-separated
// list of file extensions.
const (
	TargetAny    = "any"
	TargetFolder = "folder"
	TargetFile   = "file"
)

// ActionCopy copies the selected paths in the extension itself and is never
// sent to the dispatcher.
const ActionCopy = "copy"

var (
	ErrUnknownItem  = errors.New("menu item not found")
	ErrItemDisabled = errors.New("menu item is disabled")
	ErrLocalAction  = errors.New("menu item is handled by the extension")
)

type Settings struct {
	Order      []string         `json:"order"`
	Groups     map[string]Group `json:"groups"`
	Items      map[string]Item  `json:"items"`
	Separators bool             `json:"separators"`
}

type Group struct {
	IconType string `json:"iconType"`
	Icon     string `json:"icon"`
}

type Item struct {
	Group      string `json:"group"`
	TargetType string `json:"targetType"`
	IconType   string `json:"iconType"`
	Icon       string `json:"icon"`
	ActionType string `json:"actionType"`
	Action     string `json:"action"`
	Key        string `json:"key"`
	Enabled    bool   `json:"enabled"`
}

// Selection is one selected file-manager entry.
type Selection struct {
	Path string
	Dir  bool
}

// LoadSettings reads settings.json.
func LoadSettings(path string) (*Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read menu settings: %w", err)
	}
	var s Settings
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse menu settings %s: %w", path, err)
	}
	return &s, nil
}

// Select stats each path. Paths that cannot be stat'ed count as files.
func Select(paths ...string) []Selection {
	out := make([]Selection, 0, len(paths))
	for _, p := range paths {
		fi, err := os.Stat(p)
		out = append(out, Selection{Path: p, Dir: err == nil && fi.IsDir()})
	}
	return out
}

// Matches reports whether the item applies to the selection.
func (it Item) Matches(selected []Selection) bool {
	switch it.TargetType {
	case TargetAny, "":
		return true
	case TargetFolder:
		for _, s := range selected {
			if s.Dir {
				return true
			}
		}
		return false
	case TargetFile:
		for _, s := range selected {
			if !s.Dir {
				return true
			}
		}
		return false
	}

	exts := strings.Split(it.TargetType, ",")
	for _, s := range selected {
		ext := strings.TrimPrefix(filepath.Ext(s.Path), ".")
		for _, want := range exts {
			if strings.EqualFold(ext, strings.TrimPrefix(strings.TrimSpace(want), ".")) && ext != "" {
				return true
			}
		}
	}
	return false
}

// Visible returns the enabled items matching selected, in configured order.
func (s *Settings) Visible(selected []Selection) []string {
	var out []string
	for _, name := range s.Order {
		if name == Separator {
			continue
		}
		it, ok := s.Items[name]
		if !ok || !it.Enabled || !it.Matches(selected) {
			continue
		}
		out = append(out, name)
	}
	return out
}

// Instruction builds what the extension sends when the named item is chosen.
func (s *Settings) Instruction(name, target string, selected []Selection) (protocol.Instruction, error) {
	it, ok := s.Items[name]
	if !ok {
		return protocol.Instruction{}, fmt.Errorf("%w: %q", ErrUnknownItem, name)
	}
	if !it.Enabled {
		return protocol.Instruction{}, fmt.Errorf("%w: %q", ErrItemDisabled, name)
	}
	if it.ActionType == ActionCopy {
		return protocol.Instruction{}, fmt.Errorf("%w: %q", ErrLocalAction, name)
	}

	items := make([]string, len(selected))
	for i, sel := range selected {
		items[i] = sel.Path
	}
	return protocol.Instruction{
		Target:     target,
		TargetType: it.TargetType,
		Items:      items,
		Action:     it.Action,
		ActionType: protocol.ActionType(it.ActionType),
	}, nil
}

// WritePayloadFile atomically writes in to path as JSON.
func WritePayloadFile(path string, in protocol.Instruction) error {
	data, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create payload dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".payload-*.json")
	if err != nil {
		return fmt.Errorf("create payload temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write payload: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close payload: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replace payload file: %w", err)
	}
	return nil
}
