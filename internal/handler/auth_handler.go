package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"portal-service/internal/model"
	"portal-service/pkg/logger"
	"portal-service/prometheus"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// UserFinder looks up users in the shared user table.
type UserFinder interface {
	FindByEmail(ctx context.Context, email string) (*model.User, error)
}

// AuthHandler serves the login endpoint. Item enrichment goes through the
// item lookup endpoint over HTTP, using the same origin the login request
// arrived on.
type AuthHandler struct {
	users      UserFinder
	httpClient *http.Client
}

func NewAuthHandler(users UserFinder) *AuthHandler {
	return &AuthHandler{
		users:      users,
		httpClient: &http.Client{},
	}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// userProfile is the payload returned on successful login.
type userProfile struct {
	ID          uint         `json:"id"`
	Email       string       `json:"email"`
	Name        string       `json:"name"`
	CompanyName string       `json:"companyName"`
	Items       []model.Item `json:"items"`
}

// Login validates credentials against the shared user table and, when the
// user belongs to a company, enriches the response with the company's items.
func (h *AuthHandler) Login(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.LoginCounter.Inc()

	var req loginRequest
	if err := c.Bind(&req); err != nil {
		log.Error("Failed to parse login request", zap.Error(err))
		prometheus.RecordAuthError("invalid_request")
		return c.JSON(http.StatusBadRequest, echo.Map{
			"success": false,
			"message": "Email and password are required",
		})
	}

	if req.Email == "" || req.Password == "" {
		prometheus.RecordAuthError("missing_credentials")
		return c.JSON(http.StatusBadRequest, echo.Map{
			"success": false,
			"message": "Email and password are required",
		})
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	user, err := h.users.FindByEmail(c.Request().Context(), req.Email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			log.Warn("User not found", zap.String("email", req.Email))
			prometheus.RecordAuthError("user_not_found")
			return c.JSON(http.StatusNotFound, echo.Map{
				"success": false,
				"message": "User not found. Please register first.",
			})
		}
		log.Error("User lookup failed", zap.String("email", req.Email), zap.Error(err))
		prometheus.RecordAuthError("db_error")
		return c.JSON(http.StatusInternalServerError, echo.Map{
			"success": false,
			"message": "Authentication failed",
		})
	}

	// Passwords are stored and compared in plaintext; the user table is
	// provisioned by an external flow that does not hash.
	if user.Password != req.Password {
		log.Warn("Invalid password", zap.String("email", req.Email))
		prometheus.RecordAuthError("invalid_password")
		return c.JSON(http.StatusUnauthorized, echo.Map{
			"success": false,
			"message": "Invalid password",
		})
	}

	profile := userProfile{
		ID:          user.ID,
		Email:       user.Email,
		Name:        user.Name,
		CompanyName: user.CompanyName,
		Items:       []model.Item{},
	}

	// Best-effort enrichment: any failure leaves the item list empty and the
	// login still succeeds.
	if user.CompanyName != "" {
		items, err := h.fetchTenantItems(c, user.CompanyName)
		if err != nil {
			log.Error("Failed to fetch items during login",
				zap.String("company_name", user.CompanyName),
				zap.Error(err))
		} else if items != nil {
			profile.Items = items
		}
	}

	log.Info("User logged in",
		zap.String("email", user.Email),
		zap.String("company_name", user.CompanyName),
		zap.Int("item_count", len(profile.Items)))

	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"user":    profile,
	})
}

// fetchTenantItems calls the item lookup endpoint on the origin the inbound
// request arrived on, reconstructed from the forwarded-protocol and host
// headers.
func (h *AuthHandler) fetchTenantItems(c echo.Context, companyName string) ([]model.Item, error) {
	proto := c.Request().Header.Get("X-Forwarded-Proto")
	if proto == "" {
		proto = "http"
	}
	host := c.Request().Host

	endpoint := fmt.Sprintf("%s://%s/api/items/getItems?companyName=%s",
		proto, host, url.QueryEscape(companyName))

	req, err := http.NewRequestWithContext(c.Request().Context(), http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}

	resp, err := h.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("items endpoint returned status %d", resp.StatusCode)
	}

	var payload struct {
		Success bool         `json:"success"`
		Items   []model.Item `json:"items"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, err
	}
	if !payload.Success {
		return nil, errors.New("items endpoint reported failure")
	}

	return payload.Items, nil
}
