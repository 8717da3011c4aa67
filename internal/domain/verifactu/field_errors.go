package verifactu

import (
	"fmt"
	"maps"
	"slices"
)

// fieldErrors errores de los setters agrupados por campo. Cada campo conserva solo el
// resultado de su último setter: corregir un valor retira el error anterior.
type fieldErrors struct {
	keys  []string
	byKey map[string]error
	seq   int
}

func (f *fieldErrors) set(key string, err error) {
	if err == nil {
		if _, ok := f.byKey[key]; ok {
			delete(f.byKey, key)
			f.keys = slices.DeleteFunc(f.keys, func(k string) bool { return k == key })
		}
		return
	}
	if f.byKey == nil {
		f.byKey = make(map[string]error)
	}
	if _, ok := f.byKey[key]; !ok {
		f.keys = append(f.keys, key)
	}
	f.byKey[key] = err
}

// add error de un elemento que se añade a una lista (destinatarios, líneas...). Queda ligado
// a ese elemento y no lo sustituye ningún setter posterior.
func (f *fieldErrors) add(prefix string, err error) {
	f.seq++
	f.set(fmt.Sprintf("%s#%d", prefix, f.seq), err)
}

func (f *fieldErrors) list() []error {
	out := make([]error, 0, len(f.keys))
	for _, k := range f.keys {
		out = append(out, f.byKey[k])
	}
	return out
}

func (f fieldErrors) clone() fieldErrors {
	return fieldErrors{keys: slices.Clone(f.keys), byKey: maps.Clone(f.byKey), seq: f.seq}
}
