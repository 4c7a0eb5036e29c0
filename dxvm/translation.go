package dxvm

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// LoadTranslationFile implements §4.8/§6: a line-oriented UTF-8 text
// file where a line is skipped iff it (trimmed) begins with "#" or "@"
// or is empty; every other line is appended in order to the binary's
// translation table, starting at index 0. Loading replaces the table
// wholesale and rebuilds the definitions cache (§3's Lifecycles note on
// load_translation_file); the host must not race this with Update.
func (v *VM) LoadTranslationFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("dxvm: load translation file %s: %w", path, err)
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") || strings.HasPrefix(trimmed, "@") {
			continue
		}
		lines = append(lines, line)
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("dxvm: load translation file %s: %w", path, err)
	}

	v.binary.TranslationTable = lines
	v.binary.TranslationLoaded = true
	v.definitionsCache = make(map[string]string)
	v.staticCache = make(map[string]bool)
	v.resolveDefinitions()
	return nil
}
