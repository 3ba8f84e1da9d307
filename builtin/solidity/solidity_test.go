// Copyright (c) 2025 The DLPNet developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package solidity

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/rlp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dlpnet/dlpnet/dlp"
	"github.com/dlpnet/dlpnet/lvldb"
	"github.com/dlpnet/dlpnet/state"
	"github.com/dlpnet/dlpnet/test/datagen"
)

type TestStruct struct {
	Field1 uint64
	Field2 *big.Int
	Addr1  dlp.Address
	Bytes1 dlp.Bytes32
}

func newContext(t *testing.T) *Context {
	db, err := lvldb.NewMem()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewContext(dlp.BytesToAddress([]byte("contract")), state.New(db, nil))
}

func TestMappingStructPointer(t *testing.T) {
	ctx := newContext(t)
	mapping := NewMapping[dlp.Bytes32, *TestStruct](ctx, dlp.Bytes32{1})

	key := datagen.RandomHash()
	value := &TestStruct{Field1: 100, Field2: big.NewInt(200), Addr1: datagen.RandAddress(), Bytes1: datagen.RandomHash()}

	got, err := mapping.Get(key)
	require.NoError(t, err)
	assert.Nil(t, got)

	require.NoError(t, mapping.Set(key, value))
	got, err = mapping.Get(key)
	require.NoError(t, err)
	assert.Equal(t, value, got)

	require.NoError(t, mapping.Set(key, nil))
	got, err = mapping.Get(key)
	require.NoError(t, err)
	assert.Nil(t, got)

	require.NoError(t, mapping.Set(key, value))
	mapping.Delete(key)
	got, err = mapping.Get(key)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestMappingPlainValues(t *testing.T) {
	ctx := newContext(t)

	addrs := NewMapping[dlp.Address, dlp.Address](ctx, dlp.Bytes32{2})
	key := datagen.RandAddress()
	got, err := addrs.Get(key)
	require.NoError(t, err)
	assert.True(t, got.IsZero())

	val := datagen.RandAddress()
	require.NoError(t, addrs.Set(key, val))
	got, err = addrs.Get(key)
	require.NoError(t, err)
	assert.Equal(t, val, got)

	lists := NewMapping[*big.Int, []dlp.Address](ctx, dlp.Bytes32{3})
	list := datagen.RandAddresses(3)
	require.NoError(t, lists.Set(big.NewInt(1), list))
	gotList, err := lists.Get(big.NewInt(1))
	require.NoError(t, err)
	assert.Equal(t, list, gotList)

	empty, err := lists.Get(big.NewInt(2))
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestMappingDecodeError(t *testing.T) {
	ctx := newContext(t)

	basePos := dlp.BytesToBytes32([]byte("base"))
	m := NewMapping[dlp.Address, dlp.Address](ctx, basePos)

	key := dlp.BytesToAddress([]byte("k"))
	ctx.State().SetRawStorage(ctx.Address(), dlp.Blake2b(key.Bytes(), basePos.Bytes()), rlp.RawValue{0xFF})

	val, err := m.Get(key)
	assert.Error(t, err)
	assert.Equal(t, dlp.Address{}, val)

	m2 := NewMapping[dlp.Address, chan int](ctx, basePos)
	assert.Error(t, m2.Set(key, make(chan int)))
}

func TestUint256(t *testing.T) {
	ctx := newContext(t)
	u := NewUint256(ctx, dlp.Bytes32{1})

	u.Set(big.NewInt(1000))
	value, err := u.Get()
	assert.NoError(t, err)
	assert.Equal(t, big.NewInt(1000), value)

	assert.NoError(t, u.Add(big.NewInt(500)))
	value, _ = u.Get()
	assert.Equal(t, big.NewInt(1500), value)

	assert.NoError(t, u.Sub(big.NewInt(200)))
	value, _ = u.Get()
	assert.Equal(t, big.NewInt(1300), value)

	assert.Error(t, u.Sub(big.NewInt(1301)))
	value, _ = u.Get()
	assert.Equal(t, big.NewInt(1300), value)
}

func TestAddressAndBool(t *testing.T) {
	ctx := newContext(t)

	a := NewAddress(ctx, dlp.Bytes32{1})
	got, err := a.Get()
	assert.NoError(t, err)
	assert.True(t, got.IsZero())

	addr := datagen.RandAddress()
	a.Set(&addr)
	got, _ = a.Get()
	assert.Equal(t, addr, got)

	a.Set(nil)
	got, _ = a.Get()
	assert.True(t, got.IsZero())

	b := NewBool(ctx, dlp.Bytes32{2})
	v, err := b.Get()
	assert.NoError(t, err)
	assert.False(t, v)
	b.Set(true)
	v, _ = b.Get()
	assert.True(t, v)
	b.Set(false)
	v, _ = b.Get()
	assert.False(t, v)
}

func TestConfigVariable(t *testing.T) {
	config := NewConfigVariable("name", big.NewInt(10))
	assert.Equal(t, big.NewInt(10), config.Get())
	assert.Equal(t, "name", config.Name())
	assert.Equal(t, dlp.BytesToBytes32([]byte("name")), config.Slot())

	// returned values are copies
	config.Get().SetInt64(99)
	assert.Equal(t, big.NewInt(10), config.Get())

	ctx := newContext(t)
	config.Override(ctx)
	assert.Equal(t, big.NewInt(10), config.Get())

	config = NewConfigVariable("test", big.NewInt(10))
	ctx.State().SetRawStorage(ctx.Address(), config.Slot(), rlp.RawValue{0xFF})
	config.Override(ctx)
	assert.Equal(t, big.NewInt(10), config.Get())

	config = NewConfigVariable("test", big.NewInt(10))
	ctx.State().SetStorage(ctx.Address(), config.Slot(), dlp.BytesToBytes32(big.NewInt(42).Bytes()))
	config.Override(ctx)
	assert.Equal(t, big.NewInt(42), config.Get())

	// read once
	ctx.State().SetStorage(ctx.Address(), config.Slot(), dlp.BytesToBytes32(big.NewInt(7).Bytes()))
	config.Override(ctx)
	assert.Equal(t, big.NewInt(42), config.Get())
}
