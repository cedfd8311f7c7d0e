package auth

import (
	"strings"
	"time"

	"dairy-backend/internal/config"
	"dairy-backend/internal/httpx"
	"dairy-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type SignupRequest struct {
	Name     string `json:"name" validate:"required,max=100"`
	Email    string `json:"email" validate:"required,email,max=100"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type UserResponse struct {
	ID        uint            `json:"id"`
	Name      string          `json:"name"`
	Email     string          `json:"email"`
	Role      models.UserRole `json:"role"`
	CreatedAt time.Time       `json:"created_at"`
}

func toUserResponse(u *models.User) UserResponse {
	return UserResponse{ID: u.ID, Name: u.Name, Email: u.Email, Role: u.Role, CreatedAt: u.CreatedAt}
}

func normalizeEmail(email string) string {
	return strings.TrimSpace(strings.ToLower(email))
}

// POST /api/auth/signup
// The very first account becomes admin; everyone after that starts as staff.
func SignupHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body SignupRequest
		if err := httpx.ParseBody(c, &body); err != nil {
			return err
		}
		body.Email = normalizeEmail(body.Email)
		body.Name = strings.TrimSpace(body.Name)

		var count int64
		if err := db.Model(&models.User{}).Count(&count).Error; err != nil {
			return httpx.DBError(err, "", "could not create user")
		}
		role := models.RoleStaff
		if count == 0 {
			role = models.RoleAdmin
		}

		user, err := createUser(db, body.Name, body.Email, body.Password, role)
		if err != nil {
			return err
		}
		return c.Status(fiber.StatusCreated).JSON(toUserResponse(user))
	}
}

func createUser(db *gorm.DB, name, email, password string, role models.UserRole) (*models.User, error) {
	var existing int64
	if err := db.Model(&models.User{}).Where("email = ?", email).Count(&existing).Error; err != nil {
		return nil, httpx.DBError(err, "", "could not create user")
	}
	if existing > 0 {
		return nil, httpx.Conflict("email is already registered")
	}

	hash, err := HashPassword(password)
	if err != nil {
		return nil, httpx.Internal("could not hash password")
	}

	user := models.User{Name: name, Email: email, PasswordHash: hash, Role: role}
	if err := db.Create(&user).Error; err != nil {
		return nil, httpx.DBError(err, "", "could not create user")
	}
	return &user, nil
}

// POST /api/auth/login
func LoginHandler(db *gorm.DB, cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body LoginRequest
		if err := httpx.ParseBody(c, &body); err != nil {
			return err
		}

		var user models.User
		if err := db.Where("email = ?", normalizeEmail(body.Email)).First(&user).Error; err != nil {
			if httpx.IsUnavailable(err) {
				return httpx.Unavailable("database is unavailable, try again later")
			}
			return fiber.NewError(fiber.StatusUnauthorized, "invalid email or password")
		}
		if !CheckPassword(user.PasswordHash, body.Password) {
			return fiber.NewError(fiber.StatusUnauthorized, "invalid email or password")
		}

		token, err := GenerateToken(cfg.JWTSecret, cfg.JWTTTL, &user)
		if err != nil {
			return httpx.Internal("could not issue token")
		}

		return c.JSON(fiber.Map{
			"token":      token,
			"expires_in": int(cfg.JWTTTL.Seconds()),
			"user":       toUserResponse(&user),
		})
	}
}

// POST /api/auth/logout
func LogoutHandler(denylist Denylist) fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims := CurrentClaims(c)
		if claims == nil {
			return fiber.NewError(fiber.StatusUnauthorized, "not logged in")
		}
		var ttl time.Duration
		if claims.ExpiresAt != nil {
			ttl = time.Until(claims.ExpiresAt.Time)
		}
		if err := denylist.Revoke(c.UserContext(), claims.ID, ttl); err != nil {
			return httpx.Unavailable("could not revoke token, try again later")
		}
		return c.JSON(fiber.Map{"message": "logged out"})
	}
}

// GET /api/auth/me
func MeHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var user models.User
		if err := db.First(&user, UserID(c)).Error; err != nil {
			return httpx.DBError(err, "user not found", "could not load user")
		}
		return c.JSON(toUserResponse(&user))
	}
}
