package epub

import (
	"archive/zip"
	"encoding/xml"
	"io"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"github.com/bookerybooks/bookery/pkg/errcodes"
)

// opfPackage mirrors the parts of an OPF package document that we read or
// rewrite. Elements outside this shape are dropped on rewrite, which
// matches what mainstream library managers do to sidecar metadata.
type opfPackage struct {
	XMLName          xml.Name    `xml:"package"`
	Xmlns            string      `xml:"xmlns,attr,omitempty"`
	Version          string      `xml:"version,attr,omitempty"`
	UniqueIdentifier string      `xml:"unique-identifier,attr,omitempty"`
	Metadata         opfMetadata `xml:"metadata"`
	Manifest         opfManifest `xml:"manifest"`
	Spine            opfSpine    `xml:"spine"`
	Guide            *opfGuide   `xml:"guide,omitempty"`
}

type opfMetadata struct {
	XMLName      xml.Name        `xml:"metadata"`
	DC           string          `xml:"dc,attr,omitempty"`
	OPF          string          `xml:"opf,attr,omitempty"`
	Dcterms      string          `xml:"dcterms,attr,omitempty"`
	Xsi          string          `xml:"xsi,attr,omitempty"`
	Calibre      string          `xml:"calibre,attr,omitempty"`
	Titles       []opfTitle      `xml:"title"`
	Creators     []opfCreator    `xml:"creator"`
	Contributors []opfCreator    `xml:"contributor"`
	Identifiers  []opfIdentifier `xml:"identifier"`
	Language     string          `xml:"language,omitempty"`
	Publisher    string          `xml:"publisher,omitempty"`
	Date         string          `xml:"date,omitempty"`
	Description  string          `xml:"description,omitempty"`
	Rights       string          `xml:"rights,omitempty"`
	Subjects     []string        `xml:"subject"`
	Meta         []opfMeta       `xml:"meta"`
}

type opfTitle struct {
	Text string `xml:",chardata"`
	ID   string `xml:"id,attr,omitempty"`
}

type opfCreator struct {
	Text   string `xml:",chardata"`
	ID     string `xml:"id,attr,omitempty"`
	Role   string `xml:"role,attr,omitempty"`
	FileAs string `xml:"file-as,attr,omitempty"`
}

// opfIdentifier carries the scheme attribute twice: once matching only the
// OPF-namespaced form, once matching any namespace. Lookup prefers the
// namespaced form; the writer folds both into the plain attribute before
// marshalling.
type opfIdentifier struct {
	Text      string `xml:",chardata"`
	ID        string `xml:"id,attr,omitempty"`
	SchemeOPF string `xml:"http://www.idpf.org/2007/opf scheme,attr,omitempty"`
	Scheme    string `xml:"scheme,attr,omitempty"`
}

type opfMeta struct {
	Text     string `xml:",chardata"`
	Name     string `xml:"name,attr,omitempty"`
	Content  string `xml:"content,attr,omitempty"`
	Refines  string `xml:"refines,attr,omitempty"`
	Property string `xml:"property,attr,omitempty"`
}

type opfManifest struct {
	XMLName xml.Name          `xml:"manifest"`
	Items   []opfManifestItem `xml:"item"`
}

type opfManifestItem struct {
	ID         string `xml:"id,attr"`
	Href       string `xml:"href,attr"`
	MediaType  string `xml:"media-type,attr"`
	Properties string `xml:"properties,attr,omitempty"`
}

type opfSpine struct {
	XMLName xml.Name       `xml:"spine"`
	Toc     string         `xml:"toc,attr,omitempty"`
	Items   []opfSpineItem `xml:"itemref"`
}

type opfSpineItem struct {
	IDRef string `xml:"idref,attr"`
}

type opfGuide struct {
	XMLName    xml.Name            `xml:"guide"`
	References []opfGuideReference `xml:"reference"`
}

type opfGuideReference struct {
	Type  string `xml:"type,attr"`
	Href  string `xml:"href,attr"`
	Title string `xml:"title,attr,omitempty"`
}

// opfFile pairs a parsed package document with the zip entry it came from.
type opfFile struct {
	name string
	pkg  *opfPackage
}

// findOPF locates and parses the first .opf entry in the archive.
func findOPF(zr *zip.Reader) (*opfFile, error) {
	for _, file := range zr.File {
		if filepath.Ext(file.Name) != ".opf" {
			continue
		}
		data, err := readEntry(file)
		if err != nil {
			return nil, err
		}
		pkg := &opfPackage{}
		if err := xml.Unmarshal(data, pkg); err != nil {
			return nil, errors.WithStack(errcodes.Formatf("parsing %s: %v", file.Name, err))
		}
		return &opfFile{name: file.Name, pkg: pkg}, nil
	}
	return nil, errors.WithStack(errcodes.Format("no opf file found"))
}

// opfBasePath returns the prefix to join onto hrefs referenced from the
// OPF file, which are relative to the OPF's own location.
func opfBasePath(name string) string {
	base := filepath.Dir(name)
	if base == "." {
		return ""
	}
	return base + "/"
}

func readEntry(file *zip.File) ([]byte, error) {
	r, err := file.Open()
	if err != nil {
		return nil, errors.WithStack(err)
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	return data, errors.WithStack(err)
}

func readEntryByName(zr *zip.Reader, name string) ([]byte, error) {
	for _, file := range zr.File {
		if file.Name == name {
			return readEntry(file)
		}
	}
	return nil, errors.WithStack(errcodes.Formatf("missing zip entry %s", name))
}

// metaRefinements indexes refining meta tags by the ID they refine.
func metaRefinements(md opfMetadata) map[string]map[string]string {
	out := map[string]map[string]string{}
	for _, m := range md.Meta {
		if m.Refines == "" {
			continue
		}
		key := strings.ReplaceAll(m.Refines, "#", "")
		if _, ok := out[key]; !ok {
			out[key] = map[string]string{}
		}
		out[key][m.Property] = m.Text
	}
	return out
}

// metaContent indexes legacy name/content meta tags.
func metaContent(md opfMetadata) map[string]string {
	out := map[string]string{}
	for _, m := range md.Meta {
		if m.Refines == "" && m.Content != "" {
			out[m.Name] = m.Content
		}
	}
	return out
}
