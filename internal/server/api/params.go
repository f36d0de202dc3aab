package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/webcatalog/internal/common"
	"github.com/go-playground/validator/v10"
)

// ID is an identifier parameter. Browser clients send ids both as JSON
// numbers and as numeric strings; both decode to the same value.
type ID int64

func (id *ID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*id = 0
		return nil
	}

	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		s = strings.TrimSpace(s)
		if s == "" {
			*id = 0
			return nil
		}
		b = []byte(s)
	}

	n, err := strconv.ParseInt(string(b), 10, 64)
	if err != nil {
		return fmt.Errorf("invalid id %q", b)
	}
	*id = ID(n)
	return nil
}

type categoryCreateParams struct {
	CategoryName string `json:"category_name" validate:"required"`
}

type categoryRenameParams struct {
	OldName string `json:"old_name" validate:"required"`
	NewName string `json:"new_name" validate:"required"`
}

type categoryDeleteParams struct {
	CategoryID ID `json:"category_id" validate:"required"`
}

type websiteParams struct {
	WebName     string `json:"web_name" validate:"required"`
	URL         string `json:"url" validate:"required"`
	CategoryID  ID     `json:"category_id" validate:"required"`
	Description string `json:"description" validate:"required"`
	ImageID     *ID    `json:"image_id"`
}

type websiteUpdateParams struct {
	ID ID `json:"id" validate:"required"`
	websiteParams
}

type websiteDeleteParams struct {
	ID ID `json:"id" validate:"required"`
}

type uploadParams struct {
	ImageBase64 string `json:"image_base64"`
}

type filenameParams struct {
	Filename string `json:"filename"`
}

type loginParams struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

var errInvalidParams = common.Public(common.ErrValidation, "Invalid parameters")

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// decodeParams unmarshals raw into a T and runs its validation tags.
// Missing params, null and the empty array some clients send for "no
// params" all decode to the zero T.
func decodeParams[T any](v *validator.Validate, raw json.RawMessage) (*T, error) {
	p := new(T)

	raw = bytes.TrimSpace(raw)
	if len(raw) != 0 && !bytes.Equal(raw, []byte("null")) && !bytes.Equal(raw, []byte("[]")) {
		if err := json.Unmarshal(raw, p); err != nil {
			return nil, errInvalidParams
		}
	}

	if err := v.Struct(p); err != nil {
		var ve validator.ValidationErrors
		if errors.As(err, &ve) && len(ve) > 0 {
			fe := ve[0]
			if fe.Tag() == "required" {
				return nil, common.Required(fe.Field())
			}
			return nil, common.Publicf(common.ErrValidation, "Field '%s' is invalid", fe.Field())
		}
		return nil, errInvalidParams
	}

	return p, nil
}

func (id *ID) ptr() *int64 {
	if id == nil {
		return nil
	}
	v := int64(*id)
	return &v
}
