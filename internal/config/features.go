package config

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// ReadFeatureList reads the feature list file: one feature name per line,
// blank lines and lines starting with '#' ignored.
func ReadFeatureList(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("feature list: %w", err)
	}
	defer f.Close()
	names, err := ParseFeatureList(f)
	if err != nil {
		return nil, fmt.Errorf("feature list %s: %w", path, err)
	}
	return names, nil
}

func ParseFeatureList(r io.Reader) ([]string, error) {
	var names []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		names = append(names, line)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return names, nil
}
