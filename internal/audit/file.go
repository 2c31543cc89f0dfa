package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/johnayoung/legal-consensus/internal/output"
)

// FileSink writes each verification into its own directory under Dir:
// result.json, question.txt and report.md.
type FileSink struct {
	Dir string
}

// NewFileSink creates a sink rooted at dir.
func NewFileSink(dir string) *FileSink {
	return &FileSink{Dir: dir}
}

func (f *FileSink) Name() string { return "file" }

// RunDir returns the directory a record is written to.
func (f *FileSink) RunDir(r *output.Result) string {
	name := fmt.Sprintf("%s_%s", r.Timestamp.Format("20060102-150405"), r.ID.String()[:8])
	return filepath.Join(f.Dir, name)
}

// Save writes the record files.
func (f *FileSink) Save(ctx context.Context, r *output.Result) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	dir := f.RunDir(r)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating audit directory: %w", err)
	}

	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling result: %w", err)
	}

	files := []struct {
		name string
		data []byte
	}{
		{"result.json", data},
		{"question.txt", []byte(r.Question + "\n")},
		{"report.md", []byte(output.Markdown(r))},
	}
	for _, file := range files {
		if err := os.WriteFile(filepath.Join(dir, file.name), file.data, 0644); err != nil {
			return fmt.Errorf("writing %s: %w", file.name, err)
		}
	}
	return nil
}
