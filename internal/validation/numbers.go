package validation

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ParseQueryInt parses raw as a base-10 integer. Integers outside the int
// range saturate to math.MinInt or math.MaxInt so that range checks, not
// parsing, decide whether they are acceptable.
func ParseQueryInt(raw string, loc []string) (int, *FieldError) {
	trimmed := strings.TrimSpace(raw)

	n, err := strconv.Atoi(trimmed)
	if err != nil {
		if errors.Is(err, strconv.ErrRange) {
			if strings.HasPrefix(trimmed, "-") {
				return math.MinInt, nil
			}
			return math.MaxInt, nil
		}
		return 0, &FieldError{Type: TypeIntParsing, Loc: loc, Msg: MsgIntParsing, Input: raw}
	}
	return n, nil
}

// Min fails when value is below minimum.
func Min(value, minimum int, loc []string, input any) *FieldError {
	if value >= minimum {
		return nil
	}
	return &FieldError{
		Type:  TypeGreaterThanEqual,
		Loc:   loc,
		Msg:   fmt.Sprintf("Input should be greater than or equal to %d", minimum),
		Input: input,
	}
}

// Max fails when value is above maximum.
func Max(value, maximum int, loc []string, input any) *FieldError {
	if value <= maximum {
		return nil
	}
	return &FieldError{
		Type:  TypeLessThanEqual,
		Loc:   loc,
		Msg:   fmt.Sprintf("Input should be less than or equal to %d", maximum),
		Input: input,
	}
}

// ParseID parses a user id path parameter, which must be an integer >= 1.
func ParseID(raw string) (int64, error) {
	loc := Path("user_id")

	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return 0, Errors{{Type: TypeIntParsing, Loc: loc, Msg: MsgIntParsing, Input: raw}}
	}
	if id < 1 {
		return 0, Errors{{
			Type:  TypeGreaterThanEqual,
			Loc:   loc,
			Msg:   "Input should be greater than or equal to 1",
			Input: raw,
		}}
	}
	return id, nil
}
