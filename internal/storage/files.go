// internal/storage/files.go
//
// File-backed persistence collaborator: the run starts from a source
// document plus an instruction file and ends with the finished document
// written back out.

package storage

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/yourusername/texweave/internal/ports"
)

// FileStore implements ports.Store over three paths.
type FileStore struct {
	documentPath    string
	instructionPath string
	outputPath      string
}

// NewFileStore builds a store for the given paths.
func NewFileStore(documentPath, instructionPath, outputPath string) *FileStore {
	return &FileStore{
		documentPath:    documentPath,
		instructionPath: instructionPath,
		outputPath:      outputPath,
	}
}

// Load reads the source document and the writing instruction.
func (s *FileStore) Load(ctx context.Context) (ports.RootContext, error) {
	if err := ctx.Err(); err != nil {
		return ports.RootContext{}, err
	}
	doc, err := os.ReadFile(s.documentPath)
	if err != nil {
		return ports.RootContext{}, fmt.Errorf("storage: read document %s: %w", s.documentPath, err)
	}
	instruction, err := os.ReadFile(s.instructionPath)
	if err != nil {
		return ports.RootContext{}, fmt.Errorf("storage: read instruction %s: %w", s.instructionPath, err)
	}
	root := ports.RootContext{
		Document:    string(doc),
		Instruction: strings.TrimSpace(string(instruction)),
	}
	if root.Instruction == "" {
		return ports.RootContext{}, fmt.Errorf("storage: instruction file %s is empty", s.instructionPath)
	}
	return root, nil
}

// Save writes the finished document.
func (s *FileStore) Save(ctx context.Context, finalDocument string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.WriteFile(s.outputPath, []byte(finalDocument), 0644); err != nil {
		return fmt.Errorf("storage: write output %s: %w", s.outputPath, err)
	}
	return nil
}
