package handlers

import (
	"errors"
	"net/http"
	"os"
	"time"

	"storefront/internal/auth"
	"storefront/internal/carts"
	"storefront/internal/models"
	"storefront/internal/orders"
	"storefront/internal/payment"
	"storefront/internal/products"
	"storefront/internal/shipping"
	"storefront/internal/users"
	"storefront/middleware"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

type Handler struct {
	u   *users.Conf
	a   *auth.Conf
	p   *products.Conf
	ca  *carts.Conf
	o   *orders.Conf
	pay *payment.Conf
	sh  *shipping.Conf

	validate  *validator.Validate
	uploadDir string
}

func NewHandler(a *auth.Conf, u *users.Conf, p *products.Conf, ca *carts.Conf,
	o *orders.Conf, pay *payment.Conf, sh *shipping.Conf, uploadDir string) *Handler {
	return &Handler{
		u:         u,
		a:         a,
		p:         p,
		ca:        ca,
		o:         o,
		pay:       pay,
		sh:        sh,
		validate:  validator.New(),
		uploadDir: uploadDir,
	}
}

func API(a *auth.Conf, u *users.Conf, p *products.Conf, ca *carts.Conf,
	o *orders.Conf, pay *payment.Conf, sh *shipping.Conf, uploadDir string) (*gin.Engine, error) {

	r := gin.New()
	mode := os.Getenv("GIN_MODE")
	if mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	h := NewHandler(a, u, p, ca, o, pay, sh, uploadDir)
	m, err := middleware.NewMid(a, u)
	if err != nil {
		return nil, err
	}

	r.Use(middleware.Logger(), gin.Recovery(), middleware.CORS())

	r.GET("/", root)
	r.GET("/health", healthCheck)
	r.GET("/ping", healthCheck)
	r.Static("/uploads", uploadDir)

	api := r.Group("/api")
	{
		api.POST("/auth/register", h.Register)
		api.POST("/auth/login", h.Login)

		api.GET("/products", h.ListProducts)
		api.GET("/products/:id", h.GetProduct)
		api.GET("/products/:id/variants", h.ListVariants)
		api.GET("/categories", h.Categories)
		api.GET("/tracking/:trackingNumber", h.TrackShipment)

		authed := api.Group("")
		authed.Use(m.Authentication())
		{
			authed.GET("/auth/me", h.Me)

			authed.GET("/cart", h.GetCart)
			authed.POST("/cart", h.AddToCart)
			authed.PUT("/cart/:productId", h.UpdateCartItem)
			authed.DELETE("/cart", h.ClearCart)

			authed.POST("/orders", h.CreateOrder)
			authed.GET("/orders", h.ListOrders)
			authed.GET("/orders/:id", h.GetOrder)

			authed.POST("/payment/process", h.ProcessPayment)

			authed.GET("/shipping/:orderId", h.GetShipping)

			authed.POST("/returns", h.CreateReturn)
			authed.GET("/returns", h.ListReturns)

			authed.POST("/products", m.Authorize(h.CreateProduct, auth.RoleAdmin))
			authed.PUT("/products/:id", m.Authorize(h.UpdateProduct, auth.RoleAdmin))
			authed.DELETE("/products/:id", m.Authorize(h.DeleteProduct, auth.RoleAdmin))
			authed.POST("/products/:id/variants", m.Authorize(h.CreateVariant, auth.RoleAdmin))
			authed.PUT("/variants/:id", m.Authorize(h.UpdateVariant, auth.RoleAdmin))
			authed.DELETE("/variants/:id", m.Authorize(h.DeleteVariant, auth.RoleAdmin))
			authed.POST("/upload", m.Authorize(h.UploadImage, auth.RoleAdmin))

			authed.GET("/admin/orders", m.Authorize(h.AdminListOrders, auth.RoleAdmin))
			authed.PUT("/admin/orders/:id", m.Authorize(h.AdminUpdateOrderStatus, auth.RoleAdmin))

			authed.POST("/shipping", m.Authorize(h.CreateShipping, auth.RoleAdmin))
			authed.PUT("/shipping/:orderId", m.Authorize(h.UpdateShippingStatus, auth.RoleAdmin))

			authed.GET("/admin/returns", m.Authorize(h.AdminListReturns, auth.RoleAdmin))
			authed.PUT("/admin/returns/:id", m.Authorize(h.AdminUpdateReturnStatus, auth.RoleAdmin))
		}
	}

	return r, nil
}

func root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message": "E-Commerce API",
		"version": "1.0.0",
		"status":  "operational",
	})
}

func healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// validationMessage converts a validator error into the short field message
// returned to clients.
func validationMessage(err error) string {
	var vErrs validator.ValidationErrors
	if errors.As(err, &vErrs) {
		for _, vErr := range vErrs {
			switch vErr.Tag() {
			case "required":
				return vErr.Field() + " value missing"
			case "min":
				return vErr.Field() + " value is less than " + vErr.Param()
			case "email":
				return vErr.Field() + " is not a valid email"
			default:
				return http.StatusText(http.StatusBadRequest)
			}
		}
	}
	return http.StatusText(http.StatusBadRequest)
}

// currentUser pulls the authenticated user set by the middleware. ok is
// false only if a route was wired without the authentication middleware.
func currentUser(c *gin.Context) (u models.User, ok bool) {
	return auth.UserFromContext(c.Request.Context())
}
