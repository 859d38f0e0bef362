package config

import (
	"bufio"
	"errors"
	"os"
	"path/filepath"
	"strings"
)

// NameList is a set of file base names (without extension) allowed through a filter.
// A nil NameList allows everything.
type NameList map[string]struct{}

// ReadNameList reads one name per line. A missing file yields a nil list.
func ReadNameList(path string) (NameList, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()

	names := NameList{}
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		if name := strings.TrimSpace(sc.Text()); name != "" {
			names[name] = struct{}{}
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if len(names) == 0 {
		return nil, nil
	}
	return names, nil
}

// Allows reports whether fileName passes the filter; the extension is ignored.
func (n NameList) Allows(fileName string) bool {
	if n == nil {
		return true
	}
	base := filepath.Base(fileName)
	_, ok := n[strings.TrimSuffix(base, filepath.Ext(base))]
	return ok
}

// ReadLabel returns the words of path joined by underscores, for use in file names.
// A missing file yields "".
func ReadLabel(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", nil
		}
		return "", err
	}
	return strings.Join(strings.Fields(string(data)), "_"), nil
}
