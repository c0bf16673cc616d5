package middlewares

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"

	"SIPRESMA/config"
	"SIPRESMA/models"
)

// AuthMiddleware memvalidasi header "Authorization: Bearer <token>" dan
// menaruh akun admin yang login di context key "currentAdmin".
func AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Token tidak ditemukan. Silakan login dulu."})
			return
		}
		tokenString := strings.TrimPrefix(header, "Bearer ")

		claims := &config.JWTClaims{}
		token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
			// Tolak algoritma selain HMAC (serangan ganti alg ke "none")
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("metode signing tidak dikenal: %v", t.Header["alg"])
			}
			return config.JWT_KEY, nil
		})
		if err != nil || !token.Valid {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Token tidak valid atau sudah kadaluarsa"})
			return
		}

		var admin models.Admin
		if err := models.DB.Where("username = ?", claims.Username).First(&admin).Error; err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Sesi pengguna tidak valid"})
			return
		}

		c.Set("currentAdmin", admin)
		c.Next()
	}
}
