// Package scene is the boundary to the glTF document model and to the external
// compression pipeline. The rest of the optimizer only talks to the interfaces
// declared here.
package scene

import "context"

// Step identifies one operation of the external transform pipeline.
type Step string

const (
	StepDedup   Step = "dedup"
	StepFlatten Step = "flatten"
	StepDraco   Step = "draco"
	StepKTX2    Step = "ktx2"
)

// ExtensionDracoMeshCompression is declared in extensionsUsed by Draco compressed scenes.
const ExtensionDracoMeshCompression = "KHR_draco_mesh_compression"

// Document is a decoded scene payload. Implementations are owned by the Library that
// produced them and live for the duration of one job.
type Document interface {
	ExtensionsUsed() []string
	Textures() []Texture
	PrimitiveCount() int
}

// Texture is one image referenced by a scene. Data is empty when the image lives
// outside the payload.
type Texture struct {
	Name     string
	MimeType string
	Data     []byte
}

type Library interface {
	Read(data []byte) (Document, error)
	Write(doc Document) ([]byte, error)
}

type Transformer interface {
	Apply(ctx context.Context, doc Document, step Step) (Document, error)
}
