package scene

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/qmuntal/gltf"
)

// GLBLibrary reads any self-contained glTF payload and always writes binary glTF.
type GLBLibrary struct{}

func NewGLBLibrary() *GLBLibrary {
	return &GLBLibrary{}
}

type glbDocument struct {
	doc *gltf.Document
}

func (l *GLBLibrary) Read(data []byte) (Document, error) {
	doc := new(gltf.Document)
	if err := gltf.NewDecoder(bytes.NewReader(data)).Decode(doc); err != nil {
		return nil, fmt.Errorf("decoding gltf: %w", err)
	}
	return &glbDocument{doc: doc}, nil
}

func (l *GLBLibrary) Write(doc Document) ([]byte, error) {
	d, ok := doc.(*glbDocument)
	if !ok {
		return nil, errors.New("document was not produced by the glb library")
	}

	var buf bytes.Buffer
	encoder := gltf.NewEncoder(&buf)
	encoder.AsBinary = true
	if err := encoder.Encode(d.doc); err != nil {
		return nil, fmt.Errorf("encoding glb: %w", err)
	}
	return buf.Bytes(), nil
}

func (d *glbDocument) ExtensionsUsed() []string {
	return append([]string(nil), d.doc.ExtensionsUsed...)
}

func (d *glbDocument) PrimitiveCount() int {
	count := 0
	for _, mesh := range d.doc.Meshes {
		if mesh != nil {
			count += len(mesh.Primitives)
		}
	}
	return count
}

func (d *glbDocument) Textures() []Texture {
	textures := make([]Texture, 0, len(d.doc.Images))
	for _, img := range d.doc.Images {
		if img == nil {
			continue
		}
		texture := Texture{Name: img.Name, MimeType: img.MimeType}
		switch {
		case img.BufferView != nil:
			texture.Data = d.bufferViewData(int(*img.BufferView))
		case strings.HasPrefix(img.URI, "data:"):
			texture.Data = decodeDataURI(img.URI)
		}
		textures = append(textures, texture)
	}
	return textures
}

// bufferViewData returns nil for views that point outside their buffer
func (d *glbDocument) bufferViewData(index int) []byte {
	if index < 0 || index >= len(d.doc.BufferViews) || d.doc.BufferViews[index] == nil {
		return nil
	}
	view := d.doc.BufferViews[index]
	bufferIndex := int(view.Buffer)
	if bufferIndex < 0 || bufferIndex >= len(d.doc.Buffers) || d.doc.Buffers[bufferIndex] == nil {
		return nil
	}
	data := d.doc.Buffers[bufferIndex].Data
	start := int(view.ByteOffset)
	end := start + int(view.ByteLength)
	if start < 0 || end > len(data) || start > end {
		return nil
	}
	return data[start:end]
}

func decodeDataURI(uri string) []byte {
	header, payload, found := strings.Cut(strings.TrimPrefix(uri, "data:"), ",")
	if !found {
		return nil
	}
	if strings.HasSuffix(header, ";base64") {
		data, err := base64.StdEncoding.DecodeString(payload)
		if err != nil {
			return nil
		}
		return data
	}
	data, err := url.PathUnescape(payload)
	if err != nil {
		return nil
	}
	return []byte(data)
}
