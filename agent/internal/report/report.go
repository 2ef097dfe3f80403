package report

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"sigs.k8s.io/yaml"

	"github.com/scanboard/scanboard/agent/internal/compute"
	"github.com/scanboard/scanboard/pkg/types"
)

// Output formats.
const (
	FormatJSON  = "json"
	FormatYAML  = "yaml"
	FormatScore = "score"
	FormatText  = "text"
)

// ErrUnknownFormat is returned for a format that is not one of the Format* constants.
var ErrUnknownFormat = errors.New("unknown output format")

// Formats lists the supported output formats.
func Formats() []string {
	return []string{FormatJSON, FormatYAML, FormatScore, FormatText}
}

// Write renders sum to w in the given format.
func Write(w io.Writer, format string, sum *types.AuditSummary) error {
	var (
		out []byte
		err error
	)
	switch format {
	case FormatJSON:
		out, err = json.MarshalIndent(sum, "", "  ")
		out = append(out, '\n')
	case FormatYAML:
		out, err = yaml.Marshal(sum)
	case FormatScore:
		out = []byte(fmt.Sprintf("%d\n", compute.Score(sum)))
	case FormatText:
		out = []byte(Text(sum))
	default:
		return fmt.Errorf("report: %w %q (want one of %v)", ErrUnknownFormat, format, Formats())
	}
	if err != nil {
		return fmt.Errorf("report %s: %w", format, err)
	}
	if _, err := w.Write(out); err != nil {
		return fmt.Errorf("report write: %w", err)
	}
	return nil
}
