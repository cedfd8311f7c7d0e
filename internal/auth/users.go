package auth

import (
	"strings"

	"dairy-backend/internal/httpx"
	"dairy-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type CreateUserRequest struct {
	Name     string `json:"name" validate:"required,max=100"`
	Email    string `json:"email" validate:"required,email,max=100"`
	Password string `json:"password" validate:"required,min=8,max=72"`
	Role     string `json:"role" validate:"required,oneof=admin manager staff"`
}

type UpdateUserRequest struct {
	Name     *string `json:"name" validate:"omitempty,min=1,max=100"`
	Role     *string `json:"role" validate:"omitempty,oneof=admin manager staff"`
	Password *string `json:"password" validate:"omitempty,min=8,max=72"`
}

// GET /api/users (admin)
func ListUsersHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		q := db.Model(&models.User{})
		if search := strings.TrimSpace(c.Query("search")); search != "" {
			like := "%" + strings.ToLower(search) + "%"
			q = q.Where("LOWER(name) LIKE ? OR LOWER(email) LIKE ?", like, like)
		}

		page, err := httpx.Paginate[models.User](q, httpx.ParsePage(c), "name ASC")
		if err != nil {
			return httpx.DBError(err, "", "could not list users")
		}
		out := make([]UserResponse, 0, len(page.Data))
		for i := range page.Data {
			out = append(out, toUserResponse(&page.Data[i]))
		}
		return c.JSON(httpx.PageResponse[UserResponse]{
			Data:       out,
			Count:      page.Count,
			Page:       page.Page,
			TotalPages: page.TotalPages,
		})
	}
}

// POST /api/users (admin)
func CreateUserHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body CreateUserRequest
		if err := httpx.ParseBody(c, &body); err != nil {
			return err
		}
		user, err := createUser(db, strings.TrimSpace(body.Name), normalizeEmail(body.Email), body.Password, models.UserRole(body.Role))
		if err != nil {
			return err
		}
		return c.Status(fiber.StatusCreated).JSON(toUserResponse(user))
	}
}

// PUT /api/users/:id (admin)
func UpdateUserHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := httpx.ParamID(c, "id")
		if err != nil {
			return err
		}
		var body UpdateUserRequest
		if err := httpx.ParseBody(c, &body); err != nil {
			return err
		}

		var user models.User
		if err := db.First(&user, id).Error; err != nil {
			return httpx.DBError(err, "user not found", "could not load user")
		}

		if body.Name != nil {
			name := strings.TrimSpace(*body.Name)
			if name == "" {
				return httpx.BadRequest("name cannot be empty")
			}
			user.Name = name
		}
		if body.Role != nil {
			if user.ID == UserID(c) && models.UserRole(*body.Role) != models.RoleAdmin {
				return httpx.BadRequest("you cannot remove your own admin role")
			}
			user.Role = models.UserRole(*body.Role)
		}
		if body.Password != nil {
			hash, err := HashPassword(*body.Password)
			if err != nil {
				return httpx.Internal("could not hash password")
			}
			user.PasswordHash = hash
		}

		if err := db.Save(&user).Error; err != nil {
			return httpx.DBError(err, "user not found", "could not update user")
		}
		return c.JSON(toUserResponse(&user))
	}
}

// DELETE /api/users/:id (admin)
func DeleteUserHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := httpx.ParamID(c, "id")
		if err != nil {
			return err
		}
		if id == UserID(c) {
			return httpx.BadRequest("you cannot delete your own account")
		}

		res := db.Delete(&models.User{}, id)
		if res.Error != nil {
			return httpx.DBError(res.Error, "user not found", "could not delete user")
		}
		if res.RowsAffected == 0 {
			return httpx.NotFound("user not found")
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}
