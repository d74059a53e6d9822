// Package testhelpers provides the in-process fake chef backend and a
// programmable gateway stub used across the test suites.
package testhelpers

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/urbanrasoi/chef-client/internal/models"
)

// Backend is a gin-backed fake of the chef API. It issues real JWTs on
// login and enforces them on protected routes, so gateway tests cover
// token attachment too.
type Backend struct {
	Server *httptest.Server
	Secret string

	mu         sync.Mutex
	chefs      map[string]*models.ChefDTO // by phone
	known      map[string]bool            // phones seen before (not "new")
	nextItemID int
	orders     map[string]*models.Order

	// Failure injection per endpoint group.
	FailProfileUpdate bool
	FailMenu          bool
	FailLocation      bool
	FailLogin         bool

	// PushedLocations records every accepted location push.
	PushedLocations []models.GeoLocation
}

// NewBackend starts the fake backend; it is torn down with the test.
func NewBackend(t *testing.T) *Backend {
	t.Helper()
	gin.SetMode(gin.TestMode)

	b := &Backend{
		Secret:     "test-secret",
		chefs:      make(map[string]*models.ChefDTO),
		known:      make(map[string]bool),
		orders:     make(map[string]*models.Order),
		nextItemID: 41,
	}

	router := gin.New()
	router.Use(gin.Recovery())

	api := router.Group("/api")
	api.POST("/chef/login", b.handleLogin)
	api.POST("/chef/verify-otp", b.handleVerifyOTP)

	authed := api.Group("", b.requireToken)
	authed.GET("/chef/profile", b.handleFetchProfile)
	authed.POST("/chef/profile/update", b.handleUpdateProfile)
	authed.POST("/chef/item/add", b.handleAddItem)
	authed.POST("/chef/item/update/:id", b.handleUpdateItem)
	authed.DELETE("/chef/item/:id", b.handleDeleteItem)
	authed.DELETE("/chef/items", b.handleDeleteAllItems)
	authed.GET("/chef/orders", b.handleGetOrders)
	authed.GET("/chef/orders/:id", b.handleGetOrder)
	authed.PUT("/chef/orders/:id", b.handleUpdateOrder)
	authed.POST("/cheflocation/update", b.handlePushLocation)

	b.Server = httptest.NewServer(router)
	t.Cleanup(b.Server.Close)
	return b
}

// URL is the backend base URL for gateway construction.
func (b *Backend) URL() string { return b.Server.URL }

// SeedChef registers a chef record as an existing account.
func (b *Backend) SeedChef(phone string, chef models.ChefDTO) {
	b.mu.Lock()
	defer b.mu.Unlock()
	chef.PhoneNumber = phone
	b.chefs[phone] = &chef
	b.known[phone] = true
}

// SeedOrder registers an order.
func (b *Backend) SeedOrder(order models.Order) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.orders[order.ID] = &order
}

func (b *Backend) mintToken(phone string) string {
	claims := jwt.MapClaims{
		"phone": phone,
		"exp":   time.Now().Add(24 * time.Hour).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, _ := token.SignedString([]byte(b.Secret))
	return signed
}

func (b *Backend) requireToken(c *gin.Context) {
	header := c.GetHeader("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
		return
	}
	raw := strings.TrimPrefix(header, "Bearer ")
	token, err := jwt.Parse(raw, func(token *jwt.Token) (interface{}, error) {
		return []byte(b.Secret), nil
	})
	if err != nil || !token.Valid {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}
	claims := token.Claims.(jwt.MapClaims)
	c.Set("phone", claims["phone"].(string))
	c.Next()
}

func (b *Backend) chefFor(c *gin.Context) *models.ChefDTO {
	phone := c.GetString("phone")
	b.mu.Lock()
	defer b.mu.Unlock()
	chef, ok := b.chefs[phone]
	if !ok {
		chef = &models.ChefDTO{PhoneNumber: phone, Role: models.RoleChef}
		b.chefs[phone] = chef
	}
	return chef
}

func (b *Backend) handleLogin(c *gin.Context) {
	if b.FailLogin {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "login unavailable"})
		return
	}
	var req struct {
		PhoneNumber string `json:"phone_number"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	b.mu.Lock()
	chef, ok := b.chefs[req.PhoneNumber]
	if !ok {
		chef = &models.ChefDTO{PhoneNumber: req.PhoneNumber, Role: models.RoleChef}
		b.chefs[req.PhoneNumber] = chef
	}
	isNew := !b.known[req.PhoneNumber]
	b.known[req.PhoneNumber] = true
	b.mu.Unlock()

	c.JSON(http.StatusOK, gin.H{
		"access_token": b.mintToken(req.PhoneNumber),
		"chef":         chef,
		"new":          isNew,
	})
}

func (b *Backend) handleVerifyOTP(c *gin.Context) {
	var req struct {
		PhoneNumber string `json:"phone_number"`
		OTP         string `json:"otp"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.OTP != "1234" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid otp"})
		return
	}
	b.mu.Lock()
	chef := b.chefs[req.PhoneNumber]
	b.mu.Unlock()
	if chef == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown phone"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"access_token": b.mintToken(req.PhoneNumber),
		"chef":         chef,
		"new":          false,
	})
}

func (b *Backend) handleFetchProfile(c *gin.Context) {
	c.JSON(http.StatusOK, b.chefFor(c))
}

func (b *Backend) handleUpdateProfile(c *gin.Context) {
	if b.FailProfileUpdate {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "update unavailable"})
		return
	}
	chef := b.chefFor(c)
	updated := gin.H{}

	contentType := c.GetHeader("Content-Type")
	if strings.HasPrefix(contentType, "multipart/form-data") {
		form, err := c.MultipartForm()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		b.mu.Lock()
		for key, vals := range form.Value {
			if len(vals) == 0 {
				continue
			}
			applyProfileField(chef, key, vals[0])
			updated[key] = vals[0]
		}
		if files := form.File["profile_image"]; len(files) > 0 {
			chef.PhotoURL = "/uploads/" + files[0].Filename
			updated["photo_url"] = chef.PhotoURL
		}
		b.mu.Unlock()
	} else {
		var req map[string]any
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		b.mu.Lock()
		for key, val := range req {
			if key == "food_styles" {
				styles := toStringSlice(val)
				chef.FoodStyles = styles
				updated[key] = styles
				continue
			}
			if s, ok := val.(string); ok {
				applyProfileField(chef, key, s)
				updated[key] = s
			}
		}
		b.mu.Unlock()
	}

	c.JSON(http.StatusOK, gin.H{"updated": updated})
}

func applyProfileField(chef *models.ChefDTO, key, value string) {
	switch key {
	case "name":
		chef.Name = value
	case "email":
		chef.Email = value
	case "native_place":
		chef.NativePlace = value
	case "aadhar_number":
		chef.AadharNumber = value
	}
}

func toStringSlice(v any) []string {
	raw, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func (b *Backend) handleAddItem(c *gin.Context) {
	if b.FailMenu {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "menu unavailable"})
		return
	}
	item := menuItemFromForm(c)

	b.mu.Lock()
	b.nextItemID++
	item.ID = strconv.Itoa(b.nextItemID)
	chefPhone := c.GetString("phone")
	if chef, ok := b.chefs[chefPhone]; ok {
		chef.MenuItems = append(chef.MenuItems, item)
	}
	b.mu.Unlock()

	c.JSON(http.StatusOK, gin.H{"item_id": item.ID, "item": item})
}

func (b *Backend) handleUpdateItem(c *gin.Context) {
	if b.FailMenu {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "menu unavailable"})
		return
	}
	item := menuItemFromForm(c)
	item.ID = c.Param("id")
	c.JSON(http.StatusOK, gin.H{"item": item})
}

func (b *Backend) handleDeleteItem(c *gin.Context) {
	if b.FailMenu {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "menu unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (b *Backend) handleDeleteAllItems(c *gin.Context) {
	if b.FailMenu {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "menu unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func menuItemFromForm(c *gin.Context) models.MenuItem {
	quantity, _ := strconv.Atoi(c.PostForm("quantity"))
	price, _ := strconv.ParseFloat(c.PostForm("price"), 64)
	off, _ := strconv.ParseFloat(c.PostForm("off_percent"), 64)
	available, _ := strconv.ParseBool(c.PostForm("is_available"))
	item := models.MenuItem{
		FoodName:    c.PostForm("food_name"),
		FoodStyle:   c.PostForm("food_style"),
		FoodType:    models.FoodType(c.PostForm("food_type")),
		Quantity:    quantity,
		Price:       price,
		OffPercent:  off,
		ServiceType: models.ServiceType(c.PostForm("service_type")),
		IsAvailable: available,
	}
	if file, err := c.FormFile("photo"); err == nil {
		item.PhotoURL = "/uploads/" + file.Filename
	}
	return item
}

func (b *Backend) handleGetOrders(c *gin.Context) {
	filter := c.Query("status")
	b.mu.Lock()
	defer b.mu.Unlock()

	out := []models.Order{}
	for _, order := range b.orders {
		if orderBucket(order.Status) == filter {
			out = append(out, *order)
		}
	}
	c.JSON(http.StatusOK, out)
}

func orderBucket(status models.OrderStatus) string {
	switch status {
	case models.OrderStatusNew:
		return "new"
	case models.OrderStatusCompleted, models.OrderStatusRejected:
		return "completed"
	default:
		return "ongoing"
	}
}

func (b *Backend) handleGetOrder(c *gin.Context) {
	b.mu.Lock()
	order, ok := b.orders[c.Param("id")]
	b.mu.Unlock()
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "order not found"})
		return
	}
	c.JSON(http.StatusOK, order)
}

func (b *Backend) handleUpdateOrder(c *gin.Context) {
	var req struct {
		Status string `json:"status"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	b.mu.Lock()
	order, ok := b.orders[c.Param("id")]
	if ok {
		order.Status = models.OrderStatus(req.Status)
	}
	b.mu.Unlock()
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "order not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (b *Backend) handlePushLocation(c *gin.Context) {
	if b.FailLocation {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "location unavailable"})
		return
	}
	var req struct {
		Latitude  string `json:"latitude"`
		Longitude string `json:"longitude"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": err.Error()})
		return
	}
	lat, _ := strconv.ParseFloat(req.Latitude, 64)
	lng, _ := strconv.ParseFloat(req.Longitude, 64)

	b.mu.Lock()
	b.PushedLocations = append(b.PushedLocations, models.GeoLocation{Latitude: &lat, Longitude: &lng})
	b.mu.Unlock()

	c.JSON(http.StatusOK, gin.H{"success": true, "message": "location updated"})
}
