package errors

import "errors"

var ErrNotFound = errors.New("not found")
var ErrInsufficientBalance = errors.New("insufficient points")
var ErrEventFull = errors.New("event is sold out")
var ErrInvalidCapacity = errors.New("event capacity is invalid")
var ErrPointsOverflow = errors.New("points total out of range")
var ErrPriceOverflow = errors.New("price out of range")
