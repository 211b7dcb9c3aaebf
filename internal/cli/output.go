package cli

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/glinharesb/rsasign/internal/audit"
	"github.com/glinharesb/rsasign/pkg/rsasign"
)

type OutputFormat string

const (
	OutputFormatText OutputFormat = "text"
	OutputFormatJSON OutputFormat = "json"
	OutputFormatYAML OutputFormat = "yaml"
)

// ResultView is a Result with byte payloads hex encoded.
type ResultView struct {
	Step           string `json:"step,omitempty" yaml:"step,omitempty"`
	Code           string `json:"result_code" yaml:"result_code"`
	Name           string `json:"result_name" yaml:"result_name"`
	Message        string `json:"result_message" yaml:"result_message"`
	LibraryVersion string `json:"library_version,omitempty" yaml:"library_version,omitempty"`
	PublicKey      string `json:"public_key_bytes,omitempty" yaml:"public_key_bytes,omitempty"`
	Signature      string `json:"signature_bytes,omitempty" yaml:"signature_bytes,omitempty"`
}

func NewResultView(step string, r rsasign.Result) ResultView {
	return ResultView{
		Step:           step,
		Code:           string(r.Code),
		Name:           r.Code.String(),
		Message:        r.Message,
		LibraryVersion: r.LibraryVersion,
		PublicKey:      hex.EncodeToString(r.PublicKey),
		Signature:      hex.EncodeToString(r.Signature),
	}
}

type AuditView struct {
	Timestamp time.Time `json:"timestamp" yaml:"timestamp"`
	Operation string    `json:"operation" yaml:"operation"`
	Code      string    `json:"result_code" yaml:"result_code"`
	KeyID     string    `json:"key_id,omitempty" yaml:"key_id,omitempty"`
}

// Report is the output of a multi-step command.
type Report struct {
	Steps []ResultView `json:"steps" yaml:"steps"`
	Audit []AuditView  `json:"audit,omitempty" yaml:"audit,omitempty"`
}

// AddAudit appends entries oldest first.
func (r *Report) AddAudit(entries []audit.Entry) {
	for i := len(entries) - 1; i >= 0; i-- {
		e := entries[i]
		r.Audit = append(r.Audit, AuditView{
			Timestamp: e.Timestamp,
			Operation: e.Operation,
			Code:      e.Code,
			KeyID:     e.KeyID,
		})
	}
}

// Printer handles formatted output
type Printer struct {
	format OutputFormat
	writer io.Writer
}

func NewPrinter(format string, writer io.Writer) *Printer {
	return &Printer{
		format: OutputFormat(format),
		writer: writer,
	}
}

func (p *Printer) PrintResult(step string, r rsasign.Result) error {
	v := NewResultView(step, r)
	switch p.format {
	case OutputFormatJSON:
		return p.printJSON(v)
	case OutputFormatYAML:
		return p.printYAML(v)
	case OutputFormatText:
		p.printResultText(v)
		return nil
	default:
		return fmt.Errorf("unknown output format: %s", p.format)
	}
}

func (p *Printer) PrintReport(r Report) error {
	switch p.format {
	case OutputFormatJSON:
		return p.printJSON(r)
	case OutputFormatYAML:
		return p.printYAML(r)
	case OutputFormatText:
		for _, v := range r.Steps {
			p.printResultText(v)
		}
		if len(r.Audit) > 0 {
			fmt.Fprintln(p.writer, "Audit trail:")
			for _, a := range r.Audit {
				fmt.Fprintf(p.writer, "  %s  %-16s %s %s\n",
					a.Timestamp.Format(time.RFC3339Nano), a.Operation, a.Code, a.KeyID)
			}
		}
		return nil
	default:
		return fmt.Errorf("unknown output format: %s", p.format)
	}
}

func (p *Printer) printResultText(v ResultView) {
	if v.Step != "" {
		fmt.Fprintf(p.writer, "%-18s ", v.Step)
	}
	fmt.Fprintf(p.writer, "%s %s (%s)\n", v.Code, v.Name, v.Message)
	if v.LibraryVersion != "" {
		fmt.Fprintf(p.writer, "  library_version:  %s\n", v.LibraryVersion)
	}
	if v.PublicKey != "" {
		fmt.Fprintf(p.writer, "  public_key_bytes: %s\n", v.PublicKey)
	}
	if v.Signature != "" {
		fmt.Fprintf(p.writer, "  signature_bytes:  %s\n", v.Signature)
	}
}

func (p *Printer) printJSON(data any) error {
	encoder := json.NewEncoder(p.writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}

func (p *Printer) printYAML(data any) error {
	encoder := yaml.NewEncoder(p.writer)
	encoder.SetIndent(2)
	if err := encoder.Encode(data); err != nil {
		return err
	}
	return encoder.Close()
}
