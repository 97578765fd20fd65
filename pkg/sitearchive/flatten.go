package sitearchive

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/paulschiretz/pgl-wp-restore/pkg/plog"
	"github.com/paulschiretz/pgl-wp-restore/pkg/util"
)

// FlattenPolicy controls how move failures during flattening are treated.
type FlattenPolicy string

const (
	// FlattenLenient logs move failures and continues. A partially flattened
	// tree is accepted; this matches the historical behavior of hosting-panel
	// import scripts.
	FlattenLenient FlattenPolicy = "lenient"
	// FlattenStrict aborts the restore on the first move failure.
	FlattenStrict FlattenPolicy = "strict"
)

var flattenPolicyToString = map[FlattenPolicy]string{
	FlattenLenient: "lenient",
	FlattenStrict:  "strict",
}

var stringToFlattenPolicy map[string]FlattenPolicy

func init() {
	stringToFlattenPolicy = util.InvertMap(flattenPolicyToString)
}

func (p FlattenPolicy) String() string {
	if str, ok := flattenPolicyToString[p]; ok {
		return str
	}
	return fmt.Sprintf("unknown_flatten_policy(%s)", string(p))
}

// ParseFlattenPolicy parses a string and returns the corresponding FlattenPolicy.
func ParseFlattenPolicy(s string) (FlattenPolicy, error) {
	if policy, ok := stringToFlattenPolicy[s]; ok {
		return policy, nil
	}
	return "", fmt.Errorf("invalid flatten policy: %q. Must be 'lenient' or 'strict'", s)
}

// MarshalJSON implements the json.Marshaler interface for FlattenPolicy.
func (p FlattenPolicy) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.String())
}

// UnmarshalJSON implements the json.Unmarshaler interface for FlattenPolicy.
func (p *FlattenPolicy) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("flatten policy should be a string, got %s", data)
	}
	policy, err := ParseFlattenPolicy(s)
	if err != nil {
		return err
	}
	*p = policy
	return nil
}

// Flatten collapses a single wrapping top-level directory: many site exports
// wrap the whole document root in one folder (e.g. "site/wp-content/...") and
// the restored contents must live directly under the working directory.
//
// The decision is made on the visible (non-hidden) top-level DIRECTORIES of
// absWorkDirPath; regular files such as the archive itself or the config
// backup never count. If exactly one such directory exists, all of its
// entries, dotfiles included, are moved into the working directory and the
// emptied wrapper is removed. With zero or two-or-more candidate directories
// the tree is left untouched.
//
// Under FlattenLenient a failed move is logged and skipped; the tree may be
// left partially hoisted. Under FlattenStrict the first failed move aborts.
func Flatten(absWorkDirPath string, policy FlattenPolicy) (flattened bool, err error) {
	wrapper, ok, err := findWrapperDir(absWorkDirPath)
	if err != nil {
		return false, err
	}
	if !ok {
		plog.Debug("No single wrapping directory found, nothing to flatten", "path", absWorkDirPath)
		return false, nil
	}

	plog.Info("Flattening wrapping directory", "dir", filepath.Base(wrapper))

	entries, err := os.ReadDir(wrapper)
	if err != nil {
		return false, fmt.Errorf("could not read wrapping directory %s: %w", wrapper, err)
	}

	for _, entry := range entries {
		src := filepath.Join(wrapper, entry.Name())
		dst := filepath.Join(absWorkDirPath, entry.Name())

		plog.Notice("MOVE", "entry", entry.Name())
		if moveErr := os.Rename(src, dst); moveErr != nil {
			if policy == FlattenStrict {
				return false, fmt.Errorf("could not move %s out of wrapping directory: %w", entry.Name(), moveErr)
			}
			plog.Warn("Failed to move entry out of wrapping directory, skipping", "entry", entry.Name(), "error", moveErr)
		}
	}

	// The wrapper is only removable if every entry moved out. Leftovers are
	// already reported above under the lenient policy.
	if rmErr := os.Remove(wrapper); rmErr != nil {
		if policy == FlattenStrict {
			return false, fmt.Errorf("could not remove wrapping directory %s: %w", wrapper, rmErr)
		}
		plog.Warn("Failed to remove wrapping directory", "dir", filepath.Base(wrapper), "error", rmErr)
	}

	return true, nil
}

// findWrapperDir returns the single visible top-level directory of dir, if
// there is exactly one.
func findWrapperDir(dir string) (string, bool, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", false, fmt.Errorf("could not read directory %s: %w", dir, err)
	}

	var dirs []string
	for _, entry := range entries {
		if strings.HasPrefix(entry.Name(), ".") {
			continue // Hidden entries never count toward the flatten decision.
		}
		if entry.IsDir() {
			dirs = append(dirs, entry.Name())
		}
	}

	if len(dirs) != 1 {
		return "", false, nil
	}
	return filepath.Join(dir, dirs[0]), true, nil
}
