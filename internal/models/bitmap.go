package models

import (
	"database/sql/driver"
	"fmt"
)

// SeatBitmap is a fixed-length bit vector with one bit per seat, stored as
// BYTEA. Bit semantics are uniform across the whole system: 1 = seat free,
// 0 = seat occupied. Seat numbers are 1-based; seat n maps to bit (n-1)%8
// of byte (n-1)/8, least significant bit first.
type SeatBitmap []byte

// NewSeatBitmap returns a bitmap for seatCount seats with every seat free.
func NewSeatBitmap(seatCount int) SeatBitmap {
	b := make(SeatBitmap, (seatCount+7)/8)
	for seat := 1; seat <= seatCount; seat++ {
		b.MarkFree(seat)
	}
	return b
}

// ParseSeatBitmap builds a bitmap from a string of '1' (free) and '0'
// (occupied) characters, seat 1 first.
func ParseSeatBitmap(s string) (SeatBitmap, error) {
	b := make(SeatBitmap, (len(s)+7)/8)
	for i, c := range s {
		switch c {
		case '1':
			b.MarkFree(i + 1)
		case '0':
		default:
			return nil, fmt.Errorf("invalid bitmap character %q at position %d", c, i)
		}
	}
	return b, nil
}

// IsFree reports whether the given 1-based seat number is free.
func (b SeatBitmap) IsFree(seat int) bool {
	if seat < 1 || (seat-1)/8 >= len(b) {
		return false
	}
	return b[(seat-1)/8]&(1<<uint((seat-1)%8)) != 0
}

// MarkFree sets the seat's bit to free.
func (b SeatBitmap) MarkFree(seat int) {
	if seat < 1 || (seat-1)/8 >= len(b) {
		return
	}
	b[(seat-1)/8] |= 1 << uint((seat-1)%8)
}

// MarkOccupied clears the seat's bit.
func (b SeatBitmap) MarkOccupied(seat int) {
	if seat < 1 || (seat-1)/8 >= len(b) {
		return
	}
	b[(seat-1)/8] &^= 1 << uint((seat-1)%8)
}

// And returns the bitwise AND of b and other. A seat is free in the result
// only if it is free in both inputs.
func (b SeatBitmap) And(other SeatBitmap) SeatBitmap {
	n := len(b)
	if len(other) < n {
		n = len(other)
	}
	out := make(SeatBitmap, n)
	for i := 0; i < n; i++ {
		out[i] = b[i] & other[i]
	}
	return out
}

// Clone returns a copy of the bitmap.
func (b SeatBitmap) Clone() SeatBitmap {
	out := make(SeatBitmap, len(b))
	copy(out, b)
	return out
}

// FreeCount returns the number of free seats among the first seatCount seats.
func (b SeatBitmap) FreeCount(seatCount int) int {
	count := 0
	for seat := 1; seat <= seatCount; seat++ {
		if b.IsFree(seat) {
			count++
		}
	}
	return count
}

// FreeSeats returns the sorted 1-based numbers of all free seats among the
// first seatCount seats.
func (b SeatBitmap) FreeSeats(seatCount int) []int {
	seats := make([]int, 0, seatCount)
	for seat := 1; seat <= seatCount; seat++ {
		if b.IsFree(seat) {
			seats = append(seats, seat)
		}
	}
	return seats
}

// Value implements the driver.Valuer interface
func (b SeatBitmap) Value() (driver.Value, error) {
	if b == nil {
		return nil, nil
	}
	return []byte(b), nil
}

// Scan implements the sql.Scanner interface
func (b *SeatBitmap) Scan(src interface{}) error {
	if src == nil {
		*b = nil
		return nil
	}
	raw, ok := src.([]byte)
	if !ok {
		return fmt.Errorf("cannot scan %T into SeatBitmap", src)
	}
	out := make(SeatBitmap, len(raw))
	copy(out, raw)
	*b = out
	return nil
}
