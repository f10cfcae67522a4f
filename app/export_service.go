package app

import (
	"fmt"
	"strings"
	"time"

	"biometric/adapters/excel"
	"biometric/adapters/pdf"
	"biometric/domain/report"
	"biometric/domain/result"
	"biometric/internal/errors"
	"biometric/internal/logging"
	"biometric/ports"

	"go.uber.org/zap"
)

// Format is an export file format
type Format string

const (
	FormatExcel Format = "xlsx"
	FormatPDF   Format = "pdf"
)

// ParseFormat accepts "xlsx", "excel" and "pdf"
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "xlsx", "excel":
		return FormatExcel, nil
	case "pdf":
		return FormatPDF, nil
	}
	return "", errors.InvalidInput(fmt.Sprintf("unknown export format %q", s))
}

// Artifact is a complete export file held in memory
type Artifact struct {
	Filename    string
	ContentType string
	Data        []byte
}

// ExportService builds a report document from a snapshot and hands it to the
// writer of the requested format
type ExportService struct {
	writers map[Format]ports.DocumentWriter
	now     func() time.Time
	logger  *zap.Logger
}

// NewExportService registers the given writers, or the xlsx and pdf writers when none are given
func NewExportService(logger *zap.Logger, writers ...ports.DocumentWriter) *ExportService {
	if len(writers) == 0 {
		writers = []ports.DocumentWriter{excel.NewWriter(), pdf.NewWriter()}
	}
	s := &ExportService{
		writers: make(map[Format]ports.DocumentWriter, len(writers)),
		now:     time.Now,
		logger:  logging.OrNop(logger).Named("export"),
	}
	for _, w := range writers {
		s.writers[Format(w.Extension())] = w
	}
	return s
}

// Export refuses absent or degenerate data. Either the whole artifact is
// returned or nothing is.
func (s *ExportService) Export(snap result.Snapshot, target report.Target, format Format) (*Artifact, error) {
	writer, ok := s.writers[format]
	if !ok {
		return nil, errors.ExportError(fmt.Sprintf("no writer for format %q", format), nil)
	}

	doc, err := report.Build(snap, target, s.now())
	if err != nil {
		s.logger.Info("export refused", zap.String("format", string(format)), zap.Error(err))
		return nil, err
	}

	data, err := writer.Write(doc)
	if err != nil {
		s.logger.Error("export failed", zap.String("format", string(format)), zap.Error(err))
		if !errors.IsExport(err) {
			err = errors.ExportError("render "+string(format), err)
		}
		return nil, err
	}

	artifact := &Artifact{
		Filename:    doc.Filename(writer.Extension()),
		ContentType: writer.ContentType(),
		Data:        data,
	}
	s.logger.Info("export ready",
		zap.String("file", artifact.Filename), zap.Int("bytes", len(data)), zap.Int("sections", len(doc.Sections)))
	return artifact, nil
}
