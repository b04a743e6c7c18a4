package web

import (
	"github.com/odvcencio/rpdist/pkg/buildinfo"
	"github.com/odvcencio/rpdist/pkg/files"
	"github.com/odvcencio/rpdist/pkg/packager"
	"github.com/odvcencio/rpdist/pkg/progress"
)

// placeholder pairs a progressive image with its downscaled copy.
type placeholder struct {
	source *files.File
	path   string
}

// Packager is a zip holding the web runtime and the progressive files.
// Everything else goes into game.zip, written first and stored in the
// outer zip.
type Packager struct {
	packager.Packager

	// GameZip holds the entries of game.zip.
	GameZip     *files.FileList
	GameZipPath string

	// remote maps progressive file names to their renpy.loader
	// description.
	remote       map[string]string
	placeholders []placeholder
}

// NewPackager creates the web packager writing to outfile.
func NewPackager(info *buildinfo.BuildInfo, outfile string) (packager.Packager, error) {
	z, err := packager.NewZip(info, outfile)
	if err != nil {
		return nil, err
	}
	gz, err := files.NewFileList()
	if err != nil {
		return nil, err
	}
	return &Packager{Packager: z, GameZip: gz, remote: make(map[string]string)}, nil
}

func (p *Packager) WriteLength() int {
	return p.Packager.WriteLength() + p.GameZip.Len()
}

func (p *Packager) Write() progress.Steps {
	inner, err := packager.NewZip(nil, p.GameZipPath)
	if err != nil {
		return progress.Fail(err)
	}
	inner.SetFiles(p.GameZip)
	return progress.Chain(p.WriteLength(), inner.Write(), p.Packager.Write())
}
