// Copyright (c) 2025 The DLPNet developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package solidity

import (
	"reflect"

	"github.com/ethereum/go-ethereum/rlp"

	"github.com/dlpnet/dlpnet/dlp"
)

type Key interface {
	Bytes() []byte
}

// Mapping is a key/value storage abstraction for built-in contracts, similar to the mapping in Solidity.
// Values are RLP encoded into a single slot derived from the key and the base position.
type Mapping[K Key, V any] struct {
	context *Context
	basePos dlp.Bytes32
}

func NewMapping[K Key, V any](context *Context, pos dlp.Bytes32) *Mapping[K, V] {
	return &Mapping[K, V]{context: context, basePos: pos}
}

func (m *Mapping[K, V]) position(key K) dlp.Bytes32 {
	return dlp.Blake2b(key.Bytes(), m.basePos.Bytes())
}

// Get returns the value under key. A missing pointer value decodes as nil,
// a missing plain value as its zero value.
func (m *Mapping[K, V]) Get(key K) (value V, err error) {
	err = m.context.state.DecodeStorage(m.context.address, m.position(key), func(raw []byte) error {
		if len(raw) == 0 {
			return nil
		}
		var decoded V
		if reflect.ValueOf(decoded).Kind() == reflect.Ptr {
			decoded = reflect.New(reflect.TypeOf(decoded).Elem()).Interface().(V)
			if err := rlp.DecodeBytes(raw, decoded); err != nil {
				return err
			}
		} else if err := rlp.DecodeBytes(raw, &decoded); err != nil {
			return err
		}
		value = decoded
		return nil
	})
	if err != nil {
		var zero V
		return zero, err
	}
	return
}

// Set stores value under key. A nil pointer clears the slot.
func (m *Mapping[K, V]) Set(key K, value V) error {
	return m.context.state.EncodeStorage(m.context.address, m.position(key), func() ([]byte, error) {
		if rv := reflect.ValueOf(value); !rv.IsValid() || (rv.Kind() == reflect.Ptr && rv.IsNil()) {
			return nil, nil
		}
		return rlp.EncodeToBytes(value)
	})
}

// Delete clears the slot of key.
func (m *Mapping[K, V]) Delete(key K) {
	m.context.state.SetRawStorage(m.context.address, m.position(key), nil)
}
