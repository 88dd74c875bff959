// Package archive bundles stored files into zip downloads.
package archive

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

type ZipCreator struct{}

func NewZipCreator() *ZipCreator {
	return &ZipCreator{}
}

// CreateZip writes the archive to outputPath.
func (z *ZipCreator) CreateZip(ctx context.Context, filePaths []string, outputPath string) error {
	f, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("create zip file: %w", err)
	}
	if err := z.WriteZip(ctx, f, filePaths); err != nil {
		f.Close()
		os.Remove(outputPath)
		return err
	}
	return f.Close()
}

// WriteZip streams an archive of filePaths to w. Entries are stored flat by base
// name; a later file with a duplicate name gets a numeric prefix.
func (z *ZipCreator) WriteZip(ctx context.Context, w io.Writer, filePaths []string) error {
	zw := zip.NewWriter(w)
	used := make(map[string]int, len(filePaths))

	for _, fp := range filePaths {
		if err := ctx.Err(); err != nil {
			zw.Close()
			return err
		}

		name := filepath.Base(fp)
		if n := used[name]; n > 0 {
			name = fmt.Sprintf("%d_%s", n, name)
		}
		used[filepath.Base(fp)]++

		if err := addFile(zw, fp, name); err != nil {
			zw.Close()
			return fmt.Errorf("add %s to zip: %w", fp, err)
		}
	}
	return zw.Close()
}

func addFile(zw *zip.Writer, path, name string) error {
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return err
	}
	header, err := zip.FileInfoHeader(info)
	if err != nil {
		return err
	}
	header.Name = name
	// recordings and jpegs are already compressed
	header.Method = zip.Store

	writer, err := zw.CreateHeader(header)
	if err != nil {
		return err
	}
	_, err = io.Copy(writer, file)
	return err
}
