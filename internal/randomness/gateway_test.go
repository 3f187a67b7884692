package randomness

import (
	"context"
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var oracleAddr = common.HexToAddress("0x0000000000000000000000000000000000000f00")

type mockOracle struct {
	mock.Mock
}

func (m *mockOracle) SubmitRequest(ctx context.Context, numWords uint32) (RequestID, error) {
	args := m.Called(numWords)
	return args.Get(0).(RequestID), args.Error(1)
}

func (m *mockOracle) Identity() common.Address {
	return oracleAddr
}

// seqOracle hands out sequential request ids
type seqOracle struct {
	next uint64
}

func (o *seqOracle) SubmitRequest(ctx context.Context, numWords uint32) (RequestID, error) {
	o.next++
	return common.BigToHash(uint256.NewInt(o.next).ToBig()), nil
}

func (o *seqOracle) Identity() common.Address {
	return oracleAddr
}

func words(vals ...uint64) []uint256.Int {
	out := make([]uint256.Int, len(vals))
	for i, v := range vals {
		out[i].SetUint64(v)
	}
	return out
}

func TestGateway_RequestTwiceForPendingSlot(t *testing.T) {
	g := NewGateway(&seqOracle{}, 1, nil)
	ctx := context.Background()

	_, err := g.Request(ctx, EpochSlot(1))
	require.NoError(t, err)

	_, err = g.Request(ctx, EpochSlot(1))
	assert.ErrorIs(t, err, ErrAlreadyRequested)

	// other slots are independent
	_, err = g.Request(ctx, EpochSlot(2))
	assert.NoError(t, err)
	_, err = g.Request(ctx, CureSlot(1, 0))
	assert.NoError(t, err)
	assert.Equal(t, 3, g.Outstanding())
}

func TestGateway_Fulfill(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		run     func(t *testing.T, g *Gateway, id RequestID) error
		wantErr error
	}{
		{
			name: "accepted",
			run: func(t *testing.T, g *Gateway, id RequestID) error {
				_, err := g.Fulfill(oracleAddr, id, words(42))
				return err
			},
		},
		{
			name: "unauthorized caller",
			run: func(t *testing.T, g *Gateway, id RequestID) error {
				_, err := g.Fulfill(common.HexToAddress("0xbad"), id, words(42))
				return err
			},
			wantErr: ErrUnauthorized,
		},
		{
			name: "unknown request",
			run: func(t *testing.T, g *Gateway, id RequestID) error {
				_, err := g.Fulfill(oracleAddr, common.HexToHash("0x99"), words(42))
				return err
			},
			wantErr: ErrUnknownRequest,
		},
		{
			name: "second delivery",
			run: func(t *testing.T, g *Gateway, id RequestID) error {
				_, err := g.Fulfill(oracleAddr, id, words(42))
				require.NoError(t, err)
				_, err = g.Fulfill(oracleAddr, id, words(43))
				return err
			},
			wantErr: ErrAlreadyFulfilled,
		},
		{
			name: "empty delivery",
			run: func(t *testing.T, g *Gateway, id RequestID) error {
				_, err := g.Fulfill(oracleAddr, id, nil)
				return err
			},
			wantErr: ErrNoRandomWords,
		},
		{
			name: "cancelled request",
			run: func(t *testing.T, g *Gateway, id RequestID) error {
				require.NoError(t, g.Cancel(EpochSlot(1)))
				_, err := g.Fulfill(oracleAddr, id, words(42))
				return err
			},
			wantErr: ErrUnknownRequest,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			g := NewGateway(&seqOracle{}, 1, nil)
			id, err := g.Request(ctx, EpochSlot(1))
			require.NoError(t, err)

			err = tc.run(t, g, id)
			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			w, ok := g.Word(EpochSlot(1))
			require.True(t, ok)
			assert.Equal(t, uint64(42), w.Uint64())
			assert.False(t, g.Pending(EpochSlot(1)))
		})
	}
}

func TestGateway_RequestAfterFulfilled(t *testing.T) {
	g := NewGateway(&seqOracle{}, 1, nil)
	ctx := context.Background()

	id, err := g.Request(ctx, BrewSlot(3))
	require.NoError(t, err)
	slot, err := g.Fulfill(oracleAddr, id, words(1, 2, 3))
	require.NoError(t, err)
	assert.Equal(t, BrewSlot(3), slot)

	_, err = g.Request(ctx, BrewSlot(3))
	assert.ErrorIs(t, err, ErrAlreadyFulfilled)

	all, ok := g.Words(BrewSlot(3))
	require.True(t, ok)
	assert.Len(t, all, 3)

	// cancelling is only for outstanding requests
	assert.ErrorIs(t, g.Cancel(BrewSlot(3)), ErrAlreadyFulfilled)
}

func TestGateway_OracleFailureLeavesSlotClear(t *testing.T) {
	o := &mockOracle{}
	o.On("SubmitRequest", uint32(2)).Return(RequestID{}, errors.New("oracle down")).Once()
	o.On("SubmitRequest", uint32(2)).Return(common.HexToHash("0x01"), nil).Once()

	g := NewGateway(o, 2, nil)
	_, err := g.Request(context.Background(), EpochSlot(1))
	require.Error(t, err)
	assert.False(t, g.Requested(EpochSlot(1)))

	id, err := g.Request(context.Background(), EpochSlot(1))
	require.NoError(t, err)
	assert.Equal(t, common.HexToHash("0x01"), id)
	o.AssertExpectations(t)
}

func TestGateway_DuplicateRequestID(t *testing.T) {
	o := &mockOracle{}
	o.On("SubmitRequest", uint32(1)).Return(common.HexToHash("0x07"), nil)

	g := NewGateway(o, 0, nil)
	_, err := g.Request(context.Background(), EpochSlot(1))
	require.NoError(t, err)
	_, err = g.Request(context.Background(), EpochSlot(2))
	assert.ErrorIs(t, err, ErrDuplicateRequestID)
	assert.False(t, g.Requested(EpochSlot(2)))
}

func TestGateway_ResultsOrdered(t *testing.T) {
	g := NewGateway(&seqOracle{}, 1, nil)
	ctx := context.Background()

	for _, s := range []Slot{BrewSlot(1), CureSlot(4, 1), EpochSlot(2), CureSlot(4, 0), EpochSlot(1)} {
		_, err := g.Request(ctx, s)
		require.NoError(t, err)
	}

	results := g.Results()
	require.Len(t, results, 5)
	var slots []Slot
	for _, r := range results {
		slots = append(slots, r.Slot)
	}
	assert.Equal(t, []Slot{EpochSlot(1), EpochSlot(2), CureSlot(4, 0), CureSlot(4, 1), BrewSlot(1)}, slots)
}

func TestSlot_String(t *testing.T) {
	assert.Equal(t, "epoch/3", EpochSlot(3).String())
	assert.Equal(t, "cure/7/2", CureSlot(7, 2).String())
	assert.Equal(t, "brew/1", BrewSlot(1).String())
}
