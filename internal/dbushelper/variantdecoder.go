package dbushelper

// DecodeVariantMap decodes a map of dbus property variants into a typed
// struct, adapted from the teacher's linux/internal/dbushelper
// variantdecoder.go: a go-codec JSON handle registered with an interface
// extension that always recurses into dbus.Variant.Value() before
// delivering the scalar to the destination field. This is the fix for the
// spec.md §9 bug note ("parses variants inconsistently, sometimes
// recursing into the variant, sometimes reading the outer iter as basic")
// — the extension makes recursion unconditional, there is no code path
// that reads a variant's outer representation directly.

import (
	"reflect"
	"sync"

	"github.com/godbus/dbus/v5"
	"github.com/ugorji/go/codec"
)

type variantExt struct{}

func (variantExt) ConvertExt(v any) any {
	return v.(*dbus.Variant).Value()
}

func (variantExt) UpdateExt(dst, src any) {
	dst.(dbus.Variant).Store(src)
}

type decoderPool struct {
	mu      sync.Mutex
	handle  codec.JsonHandle
	encoder *codec.Encoder
	decoder *codec.Decoder
	buf     []byte
	ready   bool
}

var pool decoderPool

func (p *decoderPool) init() {
	if p.ready {
		return
	}

	p.handle = codec.JsonHandle{}
	p.handle.TypeInfos = codec.NewTypeInfos([]string{"codec"})
	p.handle.SetInterfaceExt(reflect.TypeOf(dbus.Variant{}), 1, variantExt{})
	p.handle.SetInterfaceExt(reflect.TypeOf((*dbus.Variant)(nil)), 1, variantExt{})

	p.encoder = codec.NewEncoderBytes(&p.buf, &p.handle)
	p.decoder = codec.NewDecoderBytes(p.buf, &p.handle)
	p.ready = true
}

// DecodeVariantMap decodes variants into dst (a pointer to a struct tagged
// with `codec:"PropName"`), by round-tripping through go-codec's JSON
// representation with the variant extension above stripping each
// dbus.Variant down to its underlying value first.
func DecodeVariantMap(variants map[string]dbus.Variant, dst any) error {
	pool.mu.Lock()
	defer pool.mu.Unlock()

	pool.init()

	pool.encoder.ResetBytes(&pool.buf)
	if err := pool.encoder.Encode(&variants); err != nil {
		return err
	}

	pool.decoder.ResetBytes(pool.buf)

	return pool.decoder.Decode(dst)
}
