package handlers

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/ersonp/relman/internal/domain/services"
	"github.com/ersonp/relman/internal/infrastructure/parsers"
)

// TransferHandler handles exporting relations to files and importing them back.
type TransferHandler struct {
	service *services.TransferService
}

// NewTransferHandler creates a new transfer handler.
func NewTransferHandler(service *services.TransferService) *TransferHandler {
	return &TransferHandler{
		service: service,
	}
}

// ExportOptions controls export behavior.
type ExportOptions struct {
	Output   string // Output file (empty = the writer passed to HandleExport)
	Format   string // "json", "csv", or "auto" (from the output extension)
	Indent   int    // JSON indent width
	Compress bool   // Gzip the output
}

// ExportResult contains the result of an export operation.
type ExportResult struct {
	Count      int
	Path       string
	Compressed bool
}

// ImportOptions controls import behavior.
type ImportOptions struct {
	Format     string                    // "json", "csv", or "auto"
	DryRun     bool                      // Validate without saving
	OnConflict services.ConflictStrategy // How to handle existing relations
}

// ImportResult contains the result of an import operation.
type ImportResult struct {
	Imported    int
	Skipped     int
	Errors      []services.ImportError
	ImportedIDs []string
}

// HandleExport writes all relations to opts.Output, or to w when no output
// file is given.
func (h *TransferHandler) HandleExport(ctx context.Context, w io.Writer, opts ExportOptions) (result *ExportResult, err error) {
	codec, err := exportCodec(opts)
	if err != nil {
		return nil, err
	}

	doc, err := h.service.Export(ctx)
	if err != nil {
		return nil, err
	}

	compress := opts.Compress || (opts.Output != "" && parsers.IsCompressed(opts.Output))
	path := opts.Output
	if compress && path != "" && !parsers.IsCompressed(path) {
		path += parsers.CompressedExt
	}

	if path != "" {
		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
		if err != nil {
			return nil, fmt.Errorf("creating file: %w", err)
		}
		defer func() {
			if cerr := f.Close(); cerr != nil && err == nil {
				err = fmt.Errorf("closing file: %w", cerr)
			}
		}()
		w = f
	}

	if compress {
		zw := parsers.NewCompressedWriter(w)
		if err := codec.Format(zw, doc); err != nil {
			return nil, fmt.Errorf("formatting output: %w", err)
		}
		if err := zw.Close(); err != nil {
			return nil, fmt.Errorf("compressing output: %w", err)
		}
	} else if err := codec.Format(w, doc); err != nil {
		return nil, fmt.Errorf("formatting output: %w", err)
	}

	return &ExportResult{
		Count:      len(doc.Relations),
		Path:       path,
		Compressed: compress,
	}, nil
}

func exportCodec(opts ExportOptions) (parsers.Codec, error) {
	var codec parsers.Codec
	switch {
	case opts.Format != "" && opts.Format != "auto":
		codec = parsers.ForFormat(opts.Format)
	case opts.Output != "":
		codec = parsers.ForFile(opts.Output)
		if codec == nil {
			codec = &parsers.JSONCodec{}
		}
	default:
		codec = &parsers.JSONCodec{}
	}

	if codec == nil {
		return nil, fmt.Errorf("unsupported export format: %s", opts.Format)
	}
	if jc, ok := codec.(*parsers.JSONCodec); ok {
		jc.Indent = opts.Indent
	}
	return codec, nil
}

// HandleImport imports relations from a file.
func (h *TransferHandler) HandleImport(ctx context.Context, filePath string, opts ImportOptions) (*ImportResult, error) {
	// Get codec
	var codec parsers.Codec
	if opts.Format == "" || opts.Format == "auto" {
		codec = parsers.ForFile(filePath)
	} else {
		codec = parsers.ForFormat(opts.Format)
	}

	if codec == nil {
		return nil, fmt.Errorf("unsupported format for file: %s", filePath)
	}

	// Open file
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("opening file: %w", err)
	}
	defer file.Close()

	var r io.Reader = file
	if parsers.IsCompressed(filePath) {
		zr, err := parsers.NewCompressedReader(file)
		if err != nil {
			return nil, fmt.Errorf("parsing file: %w", err)
		}
		defer zr.Close()
		r = zr
	}

	// Parse relations
	doc, err := codec.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parsing file: %w", err)
	}

	serviceResult, err := h.service.Import(ctx, doc, services.ImportOptions{
		DryRun:     opts.DryRun,
		OnConflict: opts.OnConflict,
	})
	if err != nil {
		return nil, err
	}

	return &ImportResult{
		Imported:    serviceResult.Imported,
		Skipped:     serviceResult.Skipped,
		Errors:      serviceResult.Errors,
		ImportedIDs: serviceResult.ImportedIDs,
	}, nil
}
