package book

import (
	"testing"
	"time"
)

func TestCanReserve(t *testing.T) {
	tests := []struct {
		name           string
		book           Book
		hasReservation bool
		wantErr        error
	}{
		{name: "copy available", book: Book{Count: 2, TakenCount: 1}},
		{name: "last copy available", book: Book{Count: 1}},
		{name: "no copies available", book: Book{Count: 1, TakenCount: 1}, wantErr: ErrNoCopiesAvailable},
		{name: "already reserved", book: Book{Count: 2}, hasReservation: true, wantErr: ErrAlreadyReserved},
		{
			name: "already reserved wins over no copies", book: Book{Count: 1, TakenCount: 1},
			hasReservation: true, wantErr: ErrAlreadyReserved,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := CanReserve(tt.book, tt.hasReservation); err != tt.wantErr {
				t.Errorf("CanReserve() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestCanExtend(t *testing.T) {
	tests := []struct {
		name    string
		res     Reservation
		wantErr error
	}{
		{name: "no extensions yet"},
		{name: "one extension left", res: Reservation{ExtensionCount: MaxExtensions - 1}},
		{name: "limit reached", res: Reservation{ExtensionCount: MaxExtensions}, wantErr: ErrExtensionLimitReached},
		{name: "limit exceeded", res: Reservation{ExtensionCount: MaxExtensions + 1}, wantErr: ErrExtensionLimitReached},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := CanExtend(tt.res); err != tt.wantErr {
				t.Errorf("CanExtend() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestEndDates(t *testing.T) {
	now := time.Date(2021, 3, 1, 10, 30, 0, 0, time.UTC)

	if got, want := InitialEndDate(now), now.Add(ReservationPeriod); !got.Equal(want) {
		t.Errorf("InitialEndDate() = %v, want %v", got, want)
	}

	// extending counts from the current due date, not from now
	end := InitialEndDate(now)
	for i := 1; i <= MaxExtensions; i++ {
		end = ExtendedEndDate(end)
		if want := now.Add(time.Duration(i+1) * ReservationPeriod); !end.Equal(want) {
			t.Errorf("ExtendedEndDate() #%d = %v, want %v", i, end, want)
		}
	}
}

func TestBook_TakeCopy(t *testing.T) {
	bk := Book{Count: 2}

	for i := 1; i <= 2; i++ {
		if err := bk.TakeCopy(); err != nil {
			t.Fatalf("TakeCopy() #%d error = %v", i, err)
		}
		if bk.TakenCount != i {
			t.Errorf("TakenCount = %d, want %d", bk.TakenCount, i)
		}
	}

	if err := bk.TakeCopy(); err != ErrNoCopiesAvailable {
		t.Errorf("TakeCopy() error = %v, want %v", err, ErrNoCopiesAvailable)
	}
	if bk.AvailableCount() != 0 {
		t.Errorf("AvailableCount() = %d, want 0", bk.AvailableCount())
	}
}

func TestBook_ReleaseCopy(t *testing.T) {
	bk := Book{Count: 1, TakenCount: 1}

	if err := bk.ReleaseCopy(); err != nil {
		t.Fatalf("ReleaseCopy() error = %v", err)
	}
	if bk.TakenCount != 0 {
		t.Errorf("TakenCount = %d, want 0", bk.TakenCount)
	}

	if err := bk.ReleaseCopy(); err != errTakenCountUnderflow {
		t.Errorf("ReleaseCopy() error = %v, want %v", err, errTakenCountUnderflow)
	}
}
