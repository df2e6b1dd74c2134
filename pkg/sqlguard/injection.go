package sqlguard

import (
	"fmt"

	libinjection "github.com/corazawaf/libinjection-go"
)

// UnsafeParameterError reports a parameter value that matched a SQL
// injection fingerprint. Values bind through driver parameters so a match is
// not exploitable against the query itself, but it is almost never a
// legitimate filter value and gets rejected before any I/O.
type UnsafeParameterError struct {
	Name        string
	Fingerprint string
}

func (e *UnsafeParameterError) Error() string {
	return fmt.Sprintf("parameter %q failed injection screening (fingerprint %s)", e.Name, e.Fingerprint)
}

// ScreenParameters runs libinjection over every string value in the bag.
// Non-string values cannot carry injection payloads and are skipped.
func ScreenParameters(params map[string]any) error {
	for name, value := range params {
		strValue, ok := value.(string)
		if !ok {
			continue
		}
		if isSQLi, fingerprint := libinjection.IsSQLi(strValue); isSQLi {
			return &UnsafeParameterError{Name: name, Fingerprint: string(fingerprint)}
		}
	}
	return nil
}
