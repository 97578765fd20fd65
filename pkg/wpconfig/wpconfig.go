// Package wpconfig reads database credentials out of a WordPress
// wp-config.php file.
//
// Only the three define() parameters needed to rewire an imported site to
// the host database are extracted: DB_NAME, DB_USER and DB_PASSWORD. The
// parser is deliberately line based. It does not evaluate PHP, it scans for
// the conventional single-quoted define() statements that every stock
// wp-config.php carries.
package wpconfig

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// Credentials holds the database connection parameters of a WordPress site.
type Credentials struct {
	DBName     string
	DBUser     string
	DBPassword string
}

// MissingParamError is returned when a wp-config.php file does not define
// one of the required database parameters.
type MissingParamError struct {
	Param string
	Path  string
}

// Error implements the error interface for MissingParamError.
func (e *MissingParamError) Error() string {
	return fmt.Sprintf("parameter %s not found in %s", e.Param, e.Path)
}

// requiredParams are the define() keys that must be present in a usable
// wp-config.php.
var requiredParams = []string{"DB_NAME", "DB_USER", "DB_PASSWORD"}

// ParseBackup reads the wp-config.php at absConfigPath and returns the
// database credentials defined in it. Every required parameter must be
// present, a partial result is never returned.
func ParseBackup(absConfigPath string) (*Credentials, error) {
	f, err := os.Open(absConfigPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open config backup: %w", err)
	}
	defer f.Close()

	found := make(map[string]string, len(requiredParams))

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		for _, param := range requiredParams {
			if _, ok := found[param]; ok {
				continue
			}
			value, ok := parseDefine(line, param)
			if ok {
				found[param] = value
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read config backup: %w", err)
	}

	for _, param := range requiredParams {
		if _, ok := found[param]; !ok {
			return nil, &MissingParamError{Param: param, Path: absConfigPath}
		}
	}

	return &Credentials{
		DBName:     found["DB_NAME"],
		DBUser:     found["DB_USER"],
		DBPassword: found["DB_PASSWORD"],
	}, nil
}

// parseDefine extracts the value of a define('PARAM', 'value'); statement
// from a single line. The second argument must be single quoted, which is
// how wp-config.php ships and how hosting panels write it.
func parseDefine(line, param string) (string, bool) {
	idx := strings.Index(line, "define(")
	if idx < 0 {
		return "", false
	}
	rest := line[idx+len("define("):]

	// First argument: the parameter name in single quotes.
	rest = strings.TrimLeft(rest, " \t")
	if !strings.HasPrefix(rest, "'"+param+"'") {
		return "", false
	}
	rest = rest[len(param)+2:]

	// Separator between the two arguments.
	rest = strings.TrimLeft(rest, " \t")
	if !strings.HasPrefix(rest, ",") {
		return "", false
	}
	rest = strings.TrimLeft(rest[1:], " \t")

	// Second argument: the value in single quotes. A quote inside the value
	// is escaped as \' in PHP.
	if !strings.HasPrefix(rest, "'") {
		return "", false
	}
	rest = rest[1:]

	var sb strings.Builder
	escaped := false
	for _, r := range rest {
		if escaped {
			if r != '\'' && r != '\\' {
				sb.WriteRune('\\')
			}
			sb.WriteRune(r)
			escaped = false
			continue
		}
		switch r {
		case '\\':
			escaped = true
		case '\'':
			return sb.String(), true
		default:
			sb.WriteRune(r)
		}
	}
	// Unterminated value.
	return "", false
}
