package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mattjoyce/tooly/internal/menu"
	"github.com/mattjoyce/tooly/internal/protocol"
)

func runEmit(args []string) int {
	fs, configPath := newFlagSet("emit")
	settingsPath := fs.String("settings", "", "Menu settings file (default: menu.settings from config)")
	item := fs.String("item", "", "Menu item to trigger")
	target := fs.String("target", "", "Directory the menu was opened in (default: derived from the selection)")
	list := fs.Bool("list", false, "List the menu items visible for the selection and exit")
	inline := fs.Bool("inline", false, "Embed the instruction in the URL instead of writing a payload file")
	payloadPath := fs.String("payload-file", "", "Where to write the payload (default: <data_dir>/payload.json)")
	dispatch := fs.Bool("dispatch", false, "Dispatch the trigger instead of printing it")
	local := fs.Bool("local", false, "With --dispatch, never forward to a resident instance")
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: tooly emit [flags] --item NAME [path...]")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 1
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return 1
	}
	if *settingsPath == "" {
		*settingsPath = cfg.MenuSettingsPath()
	}
	settings, err := menu.LoadSettings(*settingsPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return 1
	}

	paths, err := absPaths(fs.Args())
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return 1
	}
	selected := menu.Select(paths...)

	if *list {
		for _, name := range settings.Visible(selected) {
			fmt.Println(name)
		}
		return 0
	}
	if *item == "" {
		fs.Usage()
		return 1
	}

	if *target == "" {
		*target = deriveTarget(selected)
	}
	in, err := settings.Instruction(*item, *target, selected)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return 1
	}

	var rawURL string
	if *inline {
		rawURL, err = protocol.EncodeTrigger(in)
	} else {
		if *payloadPath == "" {
			*payloadPath = filepath.Join(cfg.DataDir, "payload.json")
		}
		if *payloadPath, err = filepath.Abs(*payloadPath); err == nil {
			err = menu.WritePayloadFile(*payloadPath, in)
		}
		if err == nil {
			rawURL, err = protocol.EncodeFileTrigger(*payloadPath)
		}
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to build trigger: %v\n", err)
		return 1
	}

	if !*dispatch {
		fmt.Println(rawURL)
		return 0
	}
	return dispatchURL(context.Background(), cfg, rawURL, *local, false)
}

func absPaths(paths []string) ([]string, error) {
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			return nil, fmt.Errorf("resolve %s: %w", p, err)
		}
		out = append(out, abs)
	}
	return out, nil
}

// deriveTarget mirrors the file manager: a single selected directory is the
// target, otherwise the directory holding the first selection.
func deriveTarget(selected []menu.Selection) string {
	switch {
	case len(selected) == 1 && selected[0].Dir:
		return selected[0].Path
	case len(selected) > 0:
		return filepath.Dir(selected[0].Path)
	}
	wd, err := os.Getwd()
	if err != nil {
		return ""
	}
	return wd
}
