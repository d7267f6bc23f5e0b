package export

import (
	"encoding/json"
	"io"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/clinic-pipeline/internal/quality"
)

// Report formats.
const (
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// WriteReport encodes rep as JSON or YAML.
func WriteReport(w io.Writer, rep *quality.Report, format string) error {
	switch strings.ToLower(format) {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return eris.Wrap(enc.Encode(rep), "export: encode json report")
	case FormatYAML, "yml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(rep); err != nil {
			return eris.Wrap(err, "export: encode yaml report")
		}
		return eris.Wrap(enc.Close(), "export: close yaml encoder")
	default:
		return eris.Errorf("export: unknown report format %q", format)
	}
}
