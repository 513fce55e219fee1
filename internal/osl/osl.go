// Package osl assembles the third party code attributions document from the
// license texts kept in doc/OSL/<license type>/<component>.txt.
package osl

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/otiai10/copy"

	"github.com/nvgt/nvgtbuild/internal/docgen"
	"github.com/nvgt/nvgtbuild/internal/tlogger"
)

const OutputName = "3rd_party_licenses"

// AppendixName is the topic the markdown is copied to in the documentation.
const AppendixName = "Third Party Code Attributions@.md"

type LicenseType struct {
	Dir         string
	Description string
}

var LicenseTypes = []LicenseType{
	{"zlib", "ZLib licensed code"},
	{"PD", "Code in the public domain"},
	{"BSL", "Code released under the boost software license version 1.0"},
	{"apache", "Code released under an Apache 2.0 or similar license"},
	{"LGPL", "GNU (lesser/library/linking exception) general public licensed code (lgpl)"},
	{"MIT", "MIT licensed code"},
	{"BSD", "BSD 2 or 3 clause licensed code"},
}

const header = "# Third party code attributions\n" +
	"This application may use any amount of the following copywrited code or components, though it may not use all of them or may use some of them minimally.\n\n" +
	"This document may not serve as a complete reference of all copywrited material used in this application, and thus it's distribution should be checked for other similar documents to collect a complete list of copywrited content used in this software.\n\n"

const summaryHeader = "## Summary of components\n" +
	"The following is a convenient listing of third party material that this application may use, the full text for each license can be found below the lists.\n\n"

// Markdown builds the attributions document from the license folders in dir.
// The first line of a license file names the component.
func Markdown(dir string) (string, error) {
	var summary, body strings.Builder
	summary.WriteString(summaryHeader)
	for _, lt := range LicenseTypes {
		fmt.Fprintf(&summary, "### %s\n", lt.Description)
		fmt.Fprintf(&body, "## %s\n\n", lt.Description)

		files, err := filepath.Glob(filepath.Join(dir, lt.Dir, "*.txt"))
		if err != nil {
			return "", err
		}
		for _, fn := range files {
			data, err := os.ReadFile(fn)
			if err != nil {
				tlogger.Error("msg", "Cannot read license", "path", fn, "err", err)
				return "", err
			}
			name, text, _ := strings.Cut(strings.ReplaceAll(string(data), "\r\n", "\n"), "\n")
			id := lt.Dir + "_" + strings.TrimSuffix(filepath.Base(fn), ".txt")
			fmt.Fprintf(&summary, "* [%s](#%s)\n", name, id)
			fmt.Fprintf(&body, "### <a id=\"%s\">%s</a>\n", id, name)
			// License headings sit below the component heading.
			text = strings.ReplaceAll("\n"+text, "\n##", "\n###")[1:]
			body.WriteString(text + "\n")
		}
		summary.WriteString("\n")
	}
	return header + summary.String() + body.String(), nil
}

type Document struct {
	// Dir holds the license folders and receives the generated files.
	Dir string
	// AppendixDir receives a copy of the markdown when it exists.
	AppendixDir string
	// ReleaseDir receives the html under lib/ when it exists.
	ReleaseDir string
}

func (d *Document) Generate() error {
	md, err := Markdown(d.Dir)
	if err != nil {
		return err
	}
	mdPath := filepath.Join(d.Dir, OutputName+".md")
	if err := os.WriteFile(mdPath, []byte(md), 0644); err != nil {
		tlogger.Error("msg", "Cannot write attributions", "path", mdPath, "err", err)
		return err
	}

	body, err := docgen.RenderMarkdown(md)
	if err != nil {
		return err
	}
	htmlPath := filepath.Join(d.Dir, OutputName+".html")
	if err := os.WriteFile(htmlPath, []byte(docgen.HTMLPage("third party code attributions", body)), 0644); err != nil {
		tlogger.Error("msg", "Cannot write attributions", "path", htmlPath, "err", err)
		return err
	}
	tlogger.Info("msg", "Attributions written", "path", mdPath)

	if isDir(d.AppendixDir) {
		if err := copy.Copy(mdPath, filepath.Join(d.AppendixDir, AppendixName)); err != nil {
			tlogger.Warn("msg", "Cannot copy attributions into the documentation", "err", err)
		}
	}
	if isDir(d.ReleaseDir) {
		if err := copy.Copy(htmlPath, filepath.Join(d.ReleaseDir, "lib", OutputName+".html")); err != nil {
			tlogger.Warn("msg", "Cannot copy attributions into the release", "err", err)
		}
	}
	return nil
}

func isDir(p string) bool {
	if p == "" {
		return false
	}
	fi, err := os.Stat(p)
	return err == nil && fi.IsDir()
}
