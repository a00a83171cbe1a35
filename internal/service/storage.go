// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import (
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/olegiv/folio-api/internal/util"
)

// MaxUploadSize caps any single uploaded file.
const MaxUploadSize = 50 * 1024 * 1024 // 50MB

// StoredFile describes a file saved by the storage service. Path is
// relative to the uploads directory.
type StoredFile struct {
	Path     string
	Name     string
	Size     int64
	MimeType string
	Ext      string
}

// Storage saves and removes uploaded files under a base directory.
type Storage struct {
	baseDir string
}

// NewStorage creates a storage service rooted at baseDir.
func NewStorage(baseDir string) *Storage {
	if baseDir == "" {
		baseDir = "./uploads"
	}
	return &Storage{baseDir: baseDir}
}

// SaveUpload stores an uploaded file under <kind>/<uuid>/<filename> and
// returns its metadata. kind groups files by purpose (avatars, posts,
// projects).
func (s *Storage) SaveUpload(kind string, file multipart.File, header *multipart.FileHeader) (*StoredFile, error) {
	if header.Size > MaxUploadSize {
		return nil, fmt.Errorf("file size %d exceeds maximum allowed (%d bytes)", header.Size, MaxUploadSize)
	}

	filename := sanitizeFilename(header.Filename)
	relPath := filepath.Join(kind, uuid.New().String(), filename)

	size, err := s.write(relPath, file)
	if err != nil {
		return nil, err
	}

	return &StoredFile{
		Path:     relPath,
		Name:     filename,
		Size:     size,
		MimeType: detectMimeType(header),
		Ext:      strings.TrimPrefix(filepath.Ext(filename), "."),
	}, nil
}

// SaveDownloadFile stores a download payload under
// downloads/<unix>_<slugged-name>.<ext>.
func (s *Storage) SaveDownloadFile(file multipart.File, header *multipart.FileHeader) (*StoredFile, error) {
	if header.Size > MaxUploadSize {
		return nil, fmt.Errorf("file size %d exceeds maximum allowed (%d bytes)", header.Size, MaxUploadSize)
	}

	base := filepath.Base(header.Filename)
	ext := filepath.Ext(base)
	stem := util.Slugify(strings.TrimSuffix(base, ext))
	if stem == "" {
		stem = "file"
	}
	filename := fmt.Sprintf("%d_%s%s", time.Now().Unix(), stem, strings.ToLower(ext))
	relPath := filepath.Join("downloads", filename)

	size, err := s.write(relPath, file)
	if err != nil {
		return nil, err
	}

	return &StoredFile{
		Path:     relPath,
		Name:     filename,
		Size:     size,
		MimeType: detectMimeType(header),
		Ext:      strings.TrimPrefix(strings.ToLower(ext), "."),
	}, nil
}

// Delete removes a stored file. Missing files are not an error.
func (s *Storage) Delete(relPath string) error {
	if relPath == "" {
		return nil
	}
	err := os.Remove(s.Abs(relPath))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// Abs resolves a relative storage path to an absolute one.
func (s *Storage) Abs(relPath string) string {
	return filepath.Join(s.baseDir, relPath)
}

// Exists reports whether a stored file is present on disk.
func (s *Storage) Exists(relPath string) bool {
	info, err := os.Stat(s.Abs(relPath))
	return err == nil && !info.IsDir()
}

func (s *Storage) write(relPath string, file io.Reader) (int64, error) {
	absPath := s.Abs(relPath)
	if err := os.MkdirAll(filepath.Dir(absPath), 0755); err != nil {
		return 0, fmt.Errorf("creating directory: %w", err)
	}

	out, err := os.Create(absPath)
	if err != nil {
		return 0, fmt.Errorf("creating file: %w", err)
	}
	defer func() { _ = out.Close() }()

	size, err := io.Copy(out, file)
	if err != nil {
		_ = os.Remove(absPath)
		return 0, fmt.Errorf("writing file: %w", err)
	}
	return size, nil
}

func sanitizeFilename(filename string) string {
	filename = filepath.Base(filename)

	replacer := strings.NewReplacer(
		" ", "-",
		"'", "",
		"\"", "",
		"<", "",
		">", "",
		"&", "",
		"#", "",
		"?", "",
		"%", "",
	)
	filename = replacer.Replace(filename)

	if filepath.Ext(filename) == "" {
		filename += ".bin"
	}
	return filename
}

func detectMimeType(header *multipart.FileHeader) string {
	if ct := header.Header.Get("Content-Type"); ct != "" {
		return ct
	}
	if mt := mime.TypeByExtension(filepath.Ext(header.Filename)); mt != "" {
		return mt
	}
	return "application/octet-stream"
}
