package h2

import (
	"sync"

	"github.com/coreh2/h2/h2utils"
)

// HeaderField is a single decoded (or to-be-encoded) HPACK header field.
type HeaderField struct {
	key, value []byte
	sensitive  bool
}

var headerFieldPool = sync.Pool{New: func() interface{} { return &HeaderField{} }}

// AcquireHeaderField returns a pooled, empty HeaderField.
func AcquireHeaderField() *HeaderField { return headerFieldPool.Get().(*HeaderField) }

// ReleaseHeaderField resets hf and returns it to the pool.
func ReleaseHeaderField(hf *HeaderField) {
	hf.Reset()
	headerFieldPool.Put(hf)
}

func (hf *HeaderField) Reset() {
	hf.key = hf.key[:0]
	hf.value = hf.value[:0]
	hf.sensitive = false
}

func (hf *HeaderField) Empty() bool { return len(hf.key) == 0 && len(hf.value) == 0 }

// Size returns the entry size as defined by RFC 7541 §4.1: name length
// plus value length plus 32 octets of overhead.
func (hf *HeaderField) Size() int { return len(hf.key) + len(hf.value) + 32 }

func (hf *HeaderField) CopyTo(dst *HeaderField) {
	dst.key = append(dst.key[:0], hf.key...)
	dst.value = append(dst.value[:0], hf.value...)
	dst.sensitive = hf.sensitive
}

func (hf *HeaderField) Key() string   { return h2utils.BytesToString(hf.key) }
func (hf *HeaderField) Value() string { return h2utils.BytesToString(hf.value) }

func (hf *HeaderField) KeyBytes() []byte   { return hf.key }
func (hf *HeaderField) ValueBytes() []byte { return hf.value }

func (hf *HeaderField) SetKey(k string)   { hf.key = append(hf.key[:0], k...) }
func (hf *HeaderField) SetValue(v string) { hf.value = append(hf.value[:0], v...) }

func (hf *HeaderField) SetKeyBytes(k []byte)   { hf.key = append(hf.key[:0], k...) }
func (hf *HeaderField) SetValueBytes(v []byte) { hf.value = append(hf.value[:0], v...) }

func (hf *HeaderField) Set(k, v string) {
	hf.SetKey(k)
	hf.SetValue(v)
}

// IsPseudo reports whether the field's name starts with ':'.
func (hf *HeaderField) IsPseudo() bool { return len(hf.key) > 0 && hf.key[0] == ':' }

func (hf *HeaderField) IsSensitive() bool     { return hf.sensitive }
func (hf *HeaderField) SetSensitive(v bool)   { hf.sensitive = v }

func (hf *HeaderField) String() string {
	return hf.Key() + ": " + hf.Value()
}
