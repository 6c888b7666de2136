package optimization

import (
	"reflect"
	"testing"

	"github.com/ecopia-map/cesium_tile_optimizer/internal/scene"
)

type fakeDocument struct {
	extensions []string
	textures   []scene.Texture
	primitives int
}

func (d *fakeDocument) ExtensionsUsed() []string { return d.extensions }
func (d *fakeDocument) Textures() []scene.Texture { return d.textures }
func (d *fakeDocument) PrimitiveCount() int { return d.primitives }

// apply mimics what the external pipeline does to a scene for each step.
func apply(doc *fakeDocument, plan Plan) *fakeDocument {
	out := &fakeDocument{
		extensions: append([]string(nil), doc.extensions...),
		textures:   append([]scene.Texture(nil), doc.textures...),
		primitives: doc.primitives,
	}
	for _, step := range plan {
		switch step {
		case scene.StepDraco:
			out.extensions = append(out.extensions, scene.ExtensionDracoMeshCompression)
		case scene.StepKTX2:
			for i := range out.textures {
				out.textures[i] = scene.Texture{Name: out.textures[i].Name, MimeType: "image/ktx2"}
			}
		}
	}
	return out
}

func TestBuildPlanSkipsExistingMeshCompression(t *testing.T) {
	doc := &fakeDocument{extensions: []string{scene.ExtensionDracoMeshCompression}, primitives: 4}

	plan := BuildPlan(Inspect(doc), Options{MeshCompression: true})
	for _, step := range plan {
		if step == scene.StepDraco {
			t.Fatalf("plan %v contains draco for an already compressed scene", plan)
		}
	}
	if !plan.Empty() {
		t.Fatalf("plan = %v, want empty", plan)
	}
}

func TestBuildPlanOrdersStructuralStepsFirst(t *testing.T) {
	doc := &fakeDocument{
		primitives: 1,
		textures:   []scene.Texture{{Name: "albedo", MimeType: "image/png"}},
	}

	plan := BuildPlan(Inspect(doc), Options{MeshCompression: true, TextureCompression: true})
	want := Plan{scene.StepDedup, scene.StepFlatten, scene.StepDraco, scene.StepKTX2}
	if !reflect.DeepEqual(plan, want) {
		t.Fatalf("plan = %v, want %v", plan, want)
	}
}

func TestBuildPlanTextureCompression(t *testing.T) {
	cases := []struct {
		name     string
		textures []scene.Texture
		want     bool
	}{
		{"no textures", nil, false},
		{"png only", []scene.Texture{{MimeType: "image/png"}}, true},
		{"already ktx2", []scene.Texture{{MimeType: "image/ktx2"}}, false},
		{"mixed with ktx2", []scene.Texture{{MimeType: "image/jpeg"}, {MimeType: "image/ktx2"}}, false},
		{"unknown bytes", []scene.Texture{{Data: []byte("??")}}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			plan := BuildPlan(Inspect(&fakeDocument{textures: tc.textures}), Options{TextureCompression: true})
			got := false
			for _, step := range plan {
				got = got || step == scene.StepKTX2
			}
			if got != tc.want {
				t.Fatalf("ktx2 planned = %v, want %v (plan %v)", got, tc.want, plan)
			}
		})
	}
}

func TestBuildPlanNothingRequested(t *testing.T) {
	doc := &fakeDocument{primitives: 3, textures: []scene.Texture{{MimeType: "image/png"}}}
	if plan := BuildPlan(Inspect(doc), Options{}); !plan.Empty() {
		t.Fatalf("plan = %v, want empty", plan)
	}
}

func TestBuildPlanIsIdempotent(t *testing.T) {
	docs := []*fakeDocument{
		{},
		{primitives: 2},
		{primitives: 2, extensions: []string{scene.ExtensionDracoMeshCompression}},
		{textures: []scene.Texture{{MimeType: "image/jpeg"}}},
		{primitives: 1, textures: []scene.Texture{{MimeType: "image/png"}, {MimeType: "image/webp"}}},
		{primitives: 1, textures: []scene.Texture{{MimeType: "image/ktx2"}}},
		{primitives: 5, textures: []scene.Texture{{Data: []byte("unreadable")}}},
	}
	optionSets := []Options{
		{},
		{MeshCompression: true},
		{TextureCompression: true},
		{MeshCompression: true, TextureCompression: true},
	}

	for i, doc := range docs {
		for _, opts := range optionSets {
			first := BuildPlan(Inspect(doc), opts)
			optimized := apply(doc, first)
			if second := BuildPlan(Inspect(optimized), opts); !second.Empty() {
				t.Fatalf("doc %d opts %+v: second plan %v after applying %v", i, opts, second, first)
			}
		}
	}
}

func TestInspectCollectsFormats(t *testing.T) {
	doc := &fakeDocument{textures: []scene.Texture{{MimeType: "image/png"}, {MimeType: "image/jpeg"}, {}}}
	state := Inspect(doc)
	if got := state.FormatNames(); !reflect.DeepEqual(got, []string{"image/jpeg", "image/png", "unknown"}) {
		t.Fatalf("formats = %v", got)
	}
	if state.MeshCompressed {
		t.Fatalf("scene without draco reported as compressed")
	}
}

func TestPlanStrings(t *testing.T) {
	plan := Plan{scene.StepDedup, scene.StepKTX2}
	if got := plan.Strings(); !reflect.DeepEqual(got, []string{"dedup", "ktx2"}) {
		t.Fatalf("strings = %v", got)
	}
}
