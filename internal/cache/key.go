package cache

import (
	"fmt"
	"strconv"

	"github.com/mitchellh/hashstructure/v2"
)

// Key identifies a cached query: a resource kind plus the parameters it
// was fetched with. Two keys with equal params share an entry.
type Key struct {
	Kind   string
	Params any
}

// NewKey returns the key for kind fetched with params. params may be nil.
func NewKey(kind string, params any) Key {
	return Key{Kind: kind, Params: params}
}

// String returns kind:hash, or just kind when there are no params.
func (k Key) String() string {
	if k.Params == nil {
		return k.Kind
	}
	h, err := hashstructure.Hash(k.Params, hashstructure.FormatV2, nil)
	if err != nil {
		return fmt.Sprintf("%s:%v", k.Kind, k.Params)
	}
	return k.Kind + ":" + strconv.FormatUint(h, 16)
}
