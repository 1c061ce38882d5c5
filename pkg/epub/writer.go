package epub

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"
	"math"
	"os"
	"strconv"

	"github.com/gabriel-vasile/mimetype"
	"github.com/pkg/errors"
	"golang.org/x/image/draw"

	"github.com/bookerybooks/bookery/pkg/errcodes"
	"github.com/bookerybooks/bookery/pkg/metadata"
	"github.com/bookerybooks/bookery/pkg/sortname"
)

// maxCoverWidth is the widest cover image embedded as-is. Wider images
// are downscaled before being written into the container.
const maxCoverWidth = 1600

// WriteMetadata rewrites the EPUB at path with the given metadata. The
// archive is streamed to a temp file alongside path and renamed into
// place, so a failure or cancelled context leaves the original intact.
func (f *Format) WriteMetadata(ctx context.Context, path string, meta *metadata.BookMetadata) error {
	srcFile, err := os.Open(path)
	if err != nil {
		return errors.WithStack(errcodes.Formatf("opening %s: %v", path, err))
	}
	defer srcFile.Close()

	srcStat, err := srcFile.Stat()
	if err != nil {
		return errors.WithStack(err)
	}
	srcZip, err := zip.NewReader(srcFile, srcStat.Size())
	if err != nil {
		return errors.WithStack(errcodes.Formatf("reading %s as zip: %v", path, err))
	}

	opf, err := findOPF(srcZip)
	if err != nil {
		return err
	}

	updateOPF(opf.pkg, meta)
	normalizeForMarshal(opf.pkg)

	var coverPath string
	var coverData []byte
	if f.embedCover && meta.HasCover() {
		if item := coverManifestItem(opf); item != nil {
			coverData, item.MediaType = prepareCover(meta.CoverImage)
			coverPath = opfBasePath(opf.name) + item.Href
		}
	}

	opfData, err := xml.MarshalIndent(opf.pkg, "", "  ")
	if err != nil {
		return errors.WithStack(err)
	}
	opfData = append([]byte(xml.Header), opfData...)

	tmpPath := path + ".tmp"
	destFile, err := os.Create(tmpPath)
	if err != nil {
		return errors.WithStack(err)
	}
	defer func() {
		destFile.Close()
		os.Remove(tmpPath)
	}()

	destZip := zip.NewWriter(destFile)
	for _, srcZipFile := range srcZip.File {
		select {
		case <-ctx.Done():
			return errors.WithStack(ctx.Err())
		default:
		}

		var content []byte
		switch {
		case srcZipFile.Name == opf.name:
			content = opfData
		case coverPath != "" && srcZipFile.Name == coverPath:
			content = coverData
		default:
			content, err = readEntry(srcZipFile)
			if err != nil {
				return err
			}
		}

		// The mimetype entry must stay uncompressed; everything else
		// keeps its original method.
		method := srcZipFile.Method
		if srcZipFile.Name == "mimetype" {
			method = zip.Store
		}
		entry, err := destZip.CreateHeader(&zip.FileHeader{
			Name:   srcZipFile.Name,
			Method: method,
		})
		if err != nil {
			return errors.WithStack(err)
		}
		if _, err := entry.Write(content); err != nil {
			return errors.WithStack(err)
		}
	}

	if err := destZip.Close(); err != nil {
		return errors.WithStack(err)
	}
	if err := destFile.Close(); err != nil {
		return errors.WithStack(err)
	}
	return errors.WithStack(os.Rename(tmpPath, path))
}

// updateOPF applies metadata to the parsed package document. The title
// is always written; other fields only replace existing values when set.
func updateOPF(pkg *opfPackage, meta *metadata.BookMetadata) {
	md := &pkg.Metadata

	if len(md.Titles) > 0 {
		md.Titles[0].Text = meta.Title
	} else {
		md.Titles = []opfTitle{{Text: meta.Title}}
	}

	if len(meta.Authors) > 0 {
		creators := make([]opfCreator, 0, len(meta.Authors))
		for i, author := range meta.Authors {
			fileAs := sortname.ForPerson(author)
			if i == 0 && meta.AuthorSort != "" {
				fileAs = meta.AuthorSort
			}
			creators = append(creators, opfCreator{Text: author, Role: "aut", FileAs: fileAs})
		}
		md.Creators = creators
	}

	if meta.Language != "" {
		md.Language = meta.Language
	}
	if meta.Publisher != "" {
		md.Publisher = meta.Publisher
	}
	if meta.Description != "" {
		md.Description = meta.Description
	}

	if meta.Series != "" {
		metas := make([]opfMeta, 0, len(md.Meta)+2)
		for _, m := range md.Meta {
			if m.Name == "calibre:series" || m.Name == "calibre:series_index" {
				continue
			}
			metas = append(metas, m)
		}
		metas = append(metas, opfMeta{Name: "calibre:series", Content: meta.Series})
		if meta.SeriesIndex != nil {
			metas = append(metas, opfMeta{
				Name:    "calibre:series_index",
				Content: formatSeriesIndex(*meta.SeriesIndex),
			})
		}
		md.Meta = metas
	}
}

// normalizeForMarshal strips the element namespaces recorded during
// unmarshalling. Left in place they would make the marshaller emit a
// second xmlns attribute next to the preserved one on the root element.
// Identifier schemes are folded onto the plain attribute for the same
// reason.
func normalizeForMarshal(pkg *opfPackage) {
	pkg.XMLName = xml.Name{Local: "package"}
	if pkg.Xmlns == "" {
		pkg.Xmlns = "http://www.idpf.org/2007/opf"
	}
	pkg.Metadata.XMLName = xml.Name{Local: "metadata"}
	pkg.Manifest.XMLName = xml.Name{Local: "manifest"}
	pkg.Spine.XMLName = xml.Name{Local: "spine"}
	if pkg.Guide != nil {
		pkg.Guide.XMLName = xml.Name{Local: "guide"}
	}

	ids := pkg.Metadata.Identifiers
	for i := range ids {
		if ids[i].Scheme == "" {
			ids[i].Scheme = ids[i].SchemeOPF
		}
		ids[i].SchemeOPF = ""
	}
}

// formatSeriesIndex renders whole series positions without a decimal
// part ("3") and keeps fractional ones as-is ("1.5").
func formatSeriesIndex(f float64) string {
	if f == math.Floor(f) {
		return strconv.Itoa(int(f))
	}
	return fmt.Sprintf("%g", f)
}

// prepareCover downscales oversized cover images and returns the final
// bytes with their sniffed media type. Images that cannot be decoded or
// re-encoded are embedded unchanged.
func prepareCover(data []byte) ([]byte, string) {
	mediaType := mimetype.Detect(data).String()

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return data, mediaType
	}
	bounds := img.Bounds()
	if bounds.Dx() <= maxCoverWidth {
		return data, mediaType
	}

	ratio := float64(maxCoverWidth) / float64(bounds.Dx())
	height := int(float64(bounds.Dy()) * ratio)
	resized := image.NewRGBA(image.Rect(0, 0, maxCoverWidth, height))
	draw.BiLinear.Scale(resized, resized.Bounds(), img, bounds, draw.Over, nil)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, resized, &jpeg.Options{Quality: 85}); err != nil {
		return data, mediaType
	}
	return buf.Bytes(), "image/jpeg"
}
