package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Proton-105/users-backend/internal/domain"
	apperrors "github.com/Proton-105/users-backend/internal/errors"
	"github.com/Proton-105/users-backend/internal/lifecycle"
	"github.com/Proton-105/users-backend/internal/pagination"
	"github.com/Proton-105/users-backend/internal/user"
	"github.com/Proton-105/users-backend/internal/validation"
)

const (
	msgUserDeleted  = "User deleted"
	msgUsersCleared = "Users cleared"
)

type handler struct {
	svc    *user.Service
	status lifecycle.StatusSource
	probes lifecycle.HealthChecker
	errors *apperrors.Handler
	log    *slog.Logger
}

type fixtureResponse struct {
	Items []domain.User `json:"items"`
	Total int           `json:"total"`
}

type messageResponse struct {
	Message string `json:"message"`
}

func (h *handler) fail(c *gin.Context, err error) {
	var verrs validation.Errors
	if errors.As(err, &verrs) {
		err = apperrors.NewValidationError("invalid request", verrs)
	}

	resp := h.errors.Handle(c.Request.Context(), err)
	c.AbortWithStatusJSON(resp.Status, resp.Body)
}

// createUsers creates one user from a JSON body, or loads the fixture when
// the body is empty.
func (h *handler) createUsers(c *gin.Context) {
	ctx := c.Request.Context()

	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		h.fail(c, validation.InvalidJSON(err.Error()))
		return
	}

	if len(bytes.TrimSpace(body)) == 0 {
		users, err := h.svc.LoadFixture(ctx)
		if err != nil {
			h.fail(c, err)
			return
		}
		c.JSON(http.StatusCreated, fixtureResponse{Items: users, Total: len(users)})
		return
	}

	patch, err := decodeUser(body)
	if err != nil {
		h.fail(c, err)
		return
	}

	in, err := validation.ValidateCreate(patch)
	if err != nil {
		h.fail(c, err)
		return
	}

	created, err := h.svc.Create(ctx, in)
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusCreated, created)
}

func (h *handler) getUser(c *gin.Context) {
	id, err := validation.ParseID(c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}

	found, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, found)
}

func (h *handler) listUsers(c *gin.Context) {
	params, err := pagination.Parse(c.Query("page"), c.Query("size"), h.svc.Limits())
	if err != nil {
		h.fail(c, err)
		return
	}

	page, err := h.svc.List(c.Request.Context(), params)
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, page)
}

func (h *handler) updateUser(c *gin.Context) {
	id, err := validation.ParseID(c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}

	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		h.fail(c, validation.InvalidJSON(err.Error()))
		return
	}
	if len(bytes.TrimSpace(body)) == 0 {
		h.fail(c, validation.Errors{{
			Type:  validation.TypeMissing,
			Loc:   []string{"body"},
			Msg:   validation.MsgFieldRequired,
			Input: nil,
		}})
		return
	}

	patch, err := decodeUser(body)
	if err != nil {
		h.fail(c, err)
		return
	}

	updated, err := h.svc.Update(c.Request.Context(), id, patch)
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, updated)
}

func (h *handler) deleteUser(c *gin.Context) {
	id, err := validation.ParseID(c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}

	if err := h.svc.Delete(c.Request.Context(), id); err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, messageResponse{Message: msgUserDeleted})
}

func (h *handler) clearUsers(c *gin.Context) {
	if err := h.svc.Clear(c.Request.Context()); err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, messageResponse{Message: msgUsersCleared})
}

// appStatus always answers 200; a failing dependency shows up as false.
func (h *handler) appStatus(c *gin.Context) {
	status := domain.AppStatus{}
	if h.status != nil {
		status = h.status.Check(c.Request.Context())
	}
	c.JSON(http.StatusOK, status)
}

func (h *handler) livez(c *gin.Context) {
	if err := h.probes.Liveness(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "detail": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *handler) readyz(c *gin.Context) {
	if err := h.probes.Readiness(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "detail": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// decodeUser decodes a user object member by member so that absent, null
// and mistyped fields can be told apart. Unknown members are ignored.
func decodeUser(body []byte) (domain.UserPatch, error) {
	var patch domain.UserPatch

	var members map[string]json.RawMessage
	if err := json.Unmarshal(body, &members); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			var input any
			_ = json.Unmarshal(body, &input)
			return patch, validation.NotAnObject(input)
		}
		return patch, validation.InvalidJSON(err.Error())
	}

	fields := []struct {
		name string
		dst  *domain.Optional[string]
	}{
		{"email", &patch.Email},
		{"first_name", &patch.FirstName},
		{"last_name", &patch.LastName},
		{"avatar", &patch.Avatar},
	}

	var errs validation.Errors
	for _, f := range fields {
		raw, ok := members[f.name]
		if !ok {
			continue
		}
		if err := json.Unmarshal(raw, f.dst); err != nil {
			var input any
			_ = json.Unmarshal(raw, &input)
			errs = append(errs, validation.FieldError{
				Type:  validation.TypeStringType,
				Loc:   validation.Body(f.name),
				Msg:   validation.MsgStringType,
				Input: input,
			})
		}
	}

	return patch, errs.OrNil()
}
