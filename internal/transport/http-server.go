package transport

import (
	"context"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/Rogue-Bear-Innovations/recipebook-back/internal/config"
	"github.com/Rogue-Bear-Innovations/recipebook-back/internal/db"
	"github.com/Rogue-Bear-Innovations/recipebook-back/internal/metrics"
	"github.com/Rogue-Bear-Innovations/recipebook-back/internal/service"
)

type (
	CustomValidator struct {
		validator *validator.Validate
	}

	HTTPServer struct {
		e       *echo.Echo
		cfg     *config.Config
		general *service.General
		recipes *service.Recipes
		catalog *service.Catalog
		logger  *zap.SugaredLogger
	}
)

func NewHTTPServer(lc fx.Lifecycle, cfg *config.Config, general *service.General, recipes *service.Recipes,
	catalog *service.Catalog, logger *zap.SugaredLogger) *HTTPServer {
	instance := NewRouter(cfg, general, recipes, catalog, logger)

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				listen := cfg.Host + ":" + cfg.Port
				if err := instance.e.Start(listen); err != nil && err != http.ErrServerClosed {
					logger.Fatalw("shutting down the server", "error", err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			logger.Info("Stopping HTTP server.")
			return instance.e.Shutdown(ctx)
		},
	})

	return instance
}

// NewRouter builds the echo instance with every route and middleware but
// does not listen.
func NewRouter(cfg *config.Config, general *service.General, recipes *service.Recipes,
	catalog *service.Catalog, logger *zap.SugaredLogger) *HTTPServer {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	instance := HTTPServer{
		e:       e,
		cfg:     cfg,
		general: general,
		recipes: recipes,
		catalog: catalog,
		logger:  logger,
	}

	e.Pre(middleware.AddTrailingSlashWithConfig(middleware.TrailingSlashConfig{
		Skipper: func(c echo.Context) bool {
			return !strings.HasPrefix(c.Request().URL.Path, "/api/")
		},
	}))

	e.Use(metrics.Middleware)
	e.Use(middleware.BodyLimit(cfg.BodyLimit))
	e.Use(instance.BodyLogger())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: cfg.Origins(),
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization, headerXToken},
	}))
	e.Use(middleware.Recover())
	e.Use(instance.AuthMiddleware)

	e.Validator = NewCustomValidator()
	e.HTTPErrorHandler = instance.errorHandler

	api := e.Group("/api")

	api.POST("/auth/token/login/", instance.TokenLogin)
	api.POST("/auth/token/logout/", instance.TokenLogout, requireUser)

	api.POST("/users/", instance.UserRegister)
	api.GET("/users/", instance.UserList)
	api.GET("/users/me/", instance.UserMe, requireUser)
	api.POST("/users/set_password/", instance.UserSetPassword, requireUser)
	api.GET("/users/subscriptions/", instance.Subscriptions, requireUser)
	api.GET("/users/:id/", instance.UserGet)
	api.POST("/users/:id/subscribe/", instance.Subscribe, requireUser)
	api.DELETE("/users/:id/subscribe/", instance.Unsubscribe, requireUser)

	api.GET("/tags/", instance.TagList)
	api.GET("/tags/:id/", instance.TagGet)
	api.GET("/ingredients/", instance.IngredientList)
	api.GET("/ingredients/:id/", instance.IngredientGet)

	api.GET("/recipes/", instance.RecipeList)
	api.POST("/recipes/", instance.RecipeCreate, requireUser)
	api.GET("/recipes/download_shopping_cart/", instance.DownloadShoppingCart, requireUser)
	api.GET("/recipes/:id/", instance.RecipeGet)
	api.PATCH("/recipes/:id/", instance.RecipeUpdate, requireUser)
	api.DELETE("/recipes/:id/", instance.RecipeDelete, requireUser)
	api.POST("/recipes/:id/favorite/", instance.relationAdd(service.RelationFavorite), requireUser)
	api.DELETE("/recipes/:id/favorite/", instance.relationRemove(service.RelationFavorite), requireUser)
	api.POST("/recipes/:id/shopping_cart/", instance.relationAdd(service.RelationShoppingCart), requireUser)
	api.DELETE("/recipes/:id/shopping_cart/", instance.relationRemove(service.RelationShoppingCart), requireUser)

	e.GET("/ping", func(c echo.Context) error { return c.String(http.StatusOK, "pong") })
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	if cfg.MediaBackend == config.MediaBackendLocal {
		e.Static(strings.TrimSuffix(cfg.MediaURL, "/"), cfg.MediaRoot)
	}

	return &instance
}

func (s *HTTPServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.e.ServeHTTP(w, r)
}

////////

func NewCustomValidator() *CustomValidator {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("username", func(fl validator.FieldLevel) bool {
		return service.ValidUsername(fl.Field().String())
	})
	return &CustomValidator{validator: v}
}

func (cv *CustomValidator) Validate(i interface{}) error {
	return cv.validator.Struct(i)
}

func BindAndValidate(c echo.Context, v interface{}) error {
	var err error
	if err = c.Bind(v); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, map[string][]string{
			"non_field_errors": {"malformed request body"},
		})
	}
	if err = c.Validate(v); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			return echo.NewHTTPError(http.StatusBadRequest, validationBody(verrs))
		}
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return nil
}

// validationBody keys the messages by the top level JSON field.
func validationBody(verrs validator.ValidationErrors) map[string][]string {
	body := make(map[string][]string, len(verrs))
	for _, fe := range verrs {
		field := fe.Namespace()
		if _, rest, ok := strings.Cut(field, "."); ok {
			field = rest
		}
		if i := strings.IndexAny(field, ".["); i >= 0 {
			field = field[:i]
		}
		body[field] = append(body[field], validationMessage(fe))
	}
	return body
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "this field is required"
	case "email":
		return "enter a valid email address"
	case "username":
		return "enter a valid username, it may contain letters, digits and @/./+/-/_ and cannot be \"me\""
	case "min":
		if fe.Kind() == reflect.Slice {
			return "at least " + fe.Param() + " item(s) required"
		}
		return "ensure this value is greater than or equal to " + fe.Param()
	case "max":
		if fe.Kind() == reflect.String {
			return "ensure this field has no more than " + fe.Param() + " characters"
		}
		return "ensure this value is less than or equal to " + fe.Param()
	default:
		return "invalid value"
	}
}

func GetUserFromContext(c echo.Context) (*db.User, error) {
	user, ok := c.Get(userContextKey).(*db.User)
	if !ok || user == nil {
		return nil, errors.New("no user found in context")
	}
	return user, nil
}

func GetParam(c echo.Context, name string) (string, error) {
	value := c.Param(name)
	if value == "" {
		return "", echo.NewHTTPError(http.StatusBadRequest, "invalid path param '"+name+"'")
	}
	return value, nil
}

func GetAndParseParam(c echo.Context, name string) (uint64, error) {
	v, e := GetParam(c, name)
	if e != nil {
		return 0, e
	}
	vv, e := strconv.ParseUint(v, 10, 64)
	if e != nil {
		return 0, echo.NewHTTPError(http.StatusNotFound, "not found")
	}
	return vv, nil
}
