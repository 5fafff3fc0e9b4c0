package availability

import (
	"testing"

	"librarydesk/pkg/models"
	"librarydesk/pkg/normalize"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func bookWith(copies ...models.Copy) models.Book {
	return normalize.Book(models.RawBook{ID: 1, Title: "Dune", Copies: copies})
}

func TestSelectCopyPrecedence(t *testing.T) {
	tests := []struct {
		name    string
		copies  []models.Copy
		wantID  int64
		wantErr error
	}{
		{
			name:   "available wins over reserved listed first",
			copies: []models.Copy{{ID: 1, Status: models.CopyReserved}, {ID: 2, Status: models.CopyAvailable}},
			wantID: 2,
		},
		{
			name:   "reserved only",
			copies: []models.Copy{{ID: 3, Status: models.CopyLoaned}, {ID: 4, Status: models.CopyReserved}},
			wantID: 4,
		},
		{
			name:    "no copies",
			copies:  nil,
			wantErr: ErrNoCopies,
		},
		{
			name:    "nothing eligible",
			copies:  []models.Copy{{ID: 5, Status: models.CopyLoaned}, {ID: 6, Status: models.CopyDamaged}},
			wantErr: ErrNoEligibleCopy,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := SelectCopy(tt.copies)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantID, got.ID)
		})
	}
}

func TestEvaluateLabels(t *testing.T) {
	tests := []struct {
		name             string
		book             models.Book
		wantLabel        string
		wantEnabled      bool
		wantReserve      bool
		wantAvailability string
		wantCopyID       int64
	}{
		{
			name:             "available copy",
			book:             bookWith(models.Copy{ID: 1, Status: models.CopyAvailable}, models.Copy{ID: 2, Status: models.CopyReserved}),
			wantLabel:        LabelBorrow,
			wantEnabled:      true,
			wantReserve:      false,
			wantAvailability: LabelAvailable,
			wantCopyID:       1,
		},
		{
			name:             "reserved copy only",
			book:             bookWith(models.Copy{ID: 2, Status: models.CopyReserved}),
			wantLabel:        LabelBorrowReserved,
			wantEnabled:      true,
			wantReserve:      true,
			wantAvailability: LabelOutOfStock,
			wantCopyID:       2,
		},
		{
			name:             "all loaned",
			book:             bookWith(models.Copy{ID: 3, Status: models.CopyLoaned}),
			wantLabel:        LabelOutOfStock,
			wantEnabled:      false,
			wantReserve:      true,
			wantAvailability: LabelOutOfStock,
		},
		{
			name:             "no copies",
			book:             bookWith(),
			wantLabel:        LabelOutOfStock,
			wantEnabled:      false,
			wantReserve:      true,
			wantAvailability: LabelOutOfStock,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := Evaluate(tt.book)
			assert.Equal(t, tt.wantLabel, e.Label)
			assert.Equal(t, tt.wantEnabled, e.BorrowEnabled)
			assert.Equal(t, tt.wantReserve, e.CanReserve)
			assert.Equal(t, tt.wantAvailability, e.AvailabilityLabel)
			if tt.wantCopyID == 0 {
				assert.Nil(t, e.Copy)
			} else {
				require.NotNil(t, e.Copy)
				assert.Equal(t, tt.wantCopyID, e.Copy.ID)
			}
		})
	}
}

func TestCanDeleteCopy(t *testing.T) {
	assert.False(t, CanDeleteCopy(models.Copy{Status: models.CopyLoaned}))
	assert.True(t, CanDeleteCopy(models.Copy{Status: models.CopyAvailable}))
	assert.True(t, CanDeleteCopy(models.Copy{Status: models.CopyDamaged}))
}

func TestBorrowRequest(t *testing.T) {
	req := BorrowRequest(9, 4)
	assert.Equal(t, int64(9), req.BookCopy.ID)
	assert.Equal(t, int64(4), req.Member.ID)

	res := ReservationRequest(2, 4)
	assert.Equal(t, models.ReservationPending, res.Status)
	assert.Equal(t, int64(2), res.Book.ID)
}
