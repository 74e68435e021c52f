package service

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Rogue-Bear-Innovations/recipebook-back/internal/db"
	"github.com/Rogue-Bear-Innovations/recipebook-back/internal/metrics"
)

// ImageStore persists uploaded recipe images and returns their public URL.
type ImageStore interface {
	Save(ctx context.Context, data string) (string, error)
	Delete(ctx context.Context, url string) error
}

type (
	IngredientAmount struct {
		ID     uint64
		Amount int
	}

	// RecipeInput is everything the author supplies for a create or update.
	// Image is an encoded upload; on update an empty Image keeps the current one.
	RecipeInput struct {
		Name        string
		Text        string
		Image       string
		CookingTime int
		Ingredients []IngredientAmount
		Tags        []uint64
	}
)

type Recipes struct {
	db     *gorm.DB
	images ImageStore
	logger *zap.SugaredLogger
	now    func() time.Time
}

func NewRecipes(db *gorm.DB, images ImageStore, l *zap.SugaredLogger) *Recipes {
	return &Recipes{
		db:     db,
		images: images,
		logger: l,
		now:    time.Now,
	}
}

// AssembleRecipe validates the input and persists the recipe with its
// ingredient composition and tag set in one transaction. The image is stored
// before the transaction opens and discarded if the transaction fails.
func (s *Recipes) AssembleRecipe(ctx context.Context, author *db.User, in RecipeInput) (*RecipeView, error) {
	if err := in.validate(true); err != nil {
		return nil, err
	}

	image, err := s.saveImage(ctx, in.Image)
	if err != nil {
		return nil, err
	}

	var recipe db.Recipe
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := ensureReferences(tx, in); err != nil {
			return err
		}

		recipe = db.Recipe{
			AuthorID:    author.ID,
			Name:        in.Name,
			Image:       image,
			Text:        in.Text,
			CookingTime: in.CookingTime,
			PubDate:     s.now(),
		}
		if err := tx.Omit("Author", "Tags", "Ingredients").Create(&recipe).Error; err != nil {
			return translateRecipeWrite(err, in.Name)
		}

		return writeComposition(tx, recipe.ID, in)
	})
	if err != nil {
		s.discardImage(ctx, image)
		return nil, err
	}

	metrics.RecipesAssembled.WithLabelValues("create").Inc()
	s.logger.Infow("recipe created", "recipe_id", recipe.ID, "author_id", author.ID)

	return s.GetRecipe(ctx, author.ID, recipe.ID)
}

// UpdateRecipe replaces the recipe attributes, its ingredient composition and
// its tag set. Author and publish date never change.
func (s *Recipes) UpdateRecipe(ctx context.Context, viewer *db.User, recipeID uint64, in RecipeInput) (*RecipeView, error) {
	if err := in.validate(false); err != nil {
		return nil, err
	}

	var newImage, oldImage string
	if in.Image != "" {
		var err error
		if newImage, err = s.saveImage(ctx, in.Image); err != nil {
			return nil, err
		}
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		recipe, err := ownedRecipe(tx, viewer, recipeID)
		if err != nil {
			return err
		}
		if err := ensureReferences(tx, in); err != nil {
			return err
		}

		updates := map[string]interface{}{
			"name":         in.Name,
			"text":         in.Text,
			"cooking_time": in.CookingTime,
		}
		if newImage != "" {
			oldImage = recipe.Image
			updates["image"] = newImage
		}
		if err := tx.Model(recipe).Updates(updates).Error; err != nil {
			return translateRecipeWrite(err, in.Name)
		}

		if err := tx.Where("recipe_id = ?", recipe.ID).Delete(&db.RecipeIngredient{}).Error; err != nil {
			return errors.Wrap(err, "clear recipe ingredients")
		}
		if err := tx.Where("recipe_id = ?", recipe.ID).Delete(&db.RecipeTag{}).Error; err != nil {
			return errors.Wrap(err, "clear recipe tags")
		}

		return writeComposition(tx, recipe.ID, in)
	})
	if err != nil {
		s.discardImage(ctx, newImage)
		return nil, err
	}
	s.discardImage(ctx, oldImage)

	metrics.RecipesAssembled.WithLabelValues("update").Inc()
	s.logger.Infow("recipe updated", "recipe_id", recipeID, "author_id", viewer.ID)

	return s.GetRecipe(ctx, viewer.ID, recipeID)
}

func (s *Recipes) DeleteRecipe(ctx context.Context, viewer *db.User, recipeID uint64) error {
	var image string
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		recipe, err := ownedRecipe(tx, viewer, recipeID)
		if err != nil {
			return err
		}
		image = recipe.Image
		if err := tx.Delete(recipe).Error; err != nil {
			return errors.Wrap(err, "delete recipe")
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.discardImage(ctx, image)

	metrics.RecipesAssembled.WithLabelValues("delete").Inc()
	s.logger.Infow("recipe deleted", "recipe_id", recipeID, "author_id", viewer.ID)
	return nil
}

func (s *Recipes) saveImage(ctx context.Context, data string) (string, error) {
	url, err := s.images.Save(ctx, data)
	if errors.Is(err, ErrInvalidImage) {
		return "", fieldErr("image", ErrInvalidImage, "%s", err.Error())
	}
	if err != nil {
		return "", errors.Wrap(err, "save image")
	}
	return url, nil
}

func (s *Recipes) discardImage(ctx context.Context, url string) {
	if url == "" {
		return
	}
	if err := s.images.Delete(ctx, url); err != nil {
		s.logger.Warnw("failed to delete image", "url", url, "error", err)
	}
}

func (in *RecipeInput) validate(imageRequired bool) error {
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return fieldErr("name", ErrRequired, "name is required")
	}
	if strings.TrimSpace(in.Text) == "" {
		return fieldErr("text", ErrRequired, "text is required")
	}
	if imageRequired && in.Image == "" {
		return fieldErr("image", ErrRequired, "image is required")
	}
	if !inRange(in.CookingTime) {
		return fieldErr("cooking_time", ErrOutOfRange, "cooking time must be between %d and %d", db.MinAmount, db.MaxAmount)
	}

	if len(in.Ingredients) == 0 {
		return fieldErr("ingredients", ErrRequired, "at least one ingredient is required")
	}
	seenIngredients := make(map[uint64]struct{}, len(in.Ingredients))
	for _, item := range in.Ingredients {
		if _, ok := seenIngredients[item.ID]; ok {
			return fieldErr("ingredients", ErrDuplicateIngredient, "ingredient %d is listed more than once", item.ID)
		}
		seenIngredients[item.ID] = struct{}{}
		if !inRange(item.Amount) {
			return fieldErr("ingredients", ErrOutOfRange, "amount of ingredient %d must be between %d and %d", item.ID, db.MinAmount, db.MaxAmount)
		}
	}

	if len(in.Tags) == 0 {
		return fieldErr("tags", ErrRequired, "at least one tag is required")
	}
	seenTags := make(map[uint64]struct{}, len(in.Tags))
	for _, id := range in.Tags {
		if _, ok := seenTags[id]; ok {
			return fieldErr("tags", ErrDuplicateTag, "tag %d is listed more than once", id)
		}
		seenTags[id] = struct{}{}
	}

	return nil
}

func inRange(v int) bool {
	return v >= db.MinAmount && v <= db.MaxAmount
}

// ensureReferences checks that every ingredient and tag id exists.
func ensureReferences(tx *gorm.DB, in RecipeInput) error {
	ingredientIDs := make([]uint64, len(in.Ingredients))
	for i, item := range in.Ingredients {
		ingredientIDs[i] = item.ID
	}
	if missing, err := missingIDs(tx, &db.Ingredient{}, ingredientIDs); err != nil {
		return errors.Wrap(err, "lookup ingredients")
	} else if missing != 0 {
		return fieldErr("ingredients", ErrNotFound, "ingredient %d does not exist", missing)
	}

	if missing, err := missingIDs(tx, &db.Tag{}, in.Tags); err != nil {
		return errors.Wrap(err, "lookup tags")
	} else if missing != 0 {
		return fieldErr("tags", ErrNotFound, "tag %d does not exist", missing)
	}
	return nil
}

// missingIDs returns the first id absent from the model's table, or 0.
func missingIDs(tx *gorm.DB, model interface{}, ids []uint64) (uint64, error) {
	found := make([]uint64, 0, len(ids))
	if err := tx.Model(model).Where("id IN ?", ids).Pluck("id", &found).Error; err != nil {
		return 0, err
	}
	present := make(map[uint64]struct{}, len(found))
	for _, id := range found {
		present[id] = struct{}{}
	}
	for _, id := range ids {
		if _, ok := present[id]; !ok {
			return id, nil
		}
	}
	return 0, nil
}

func writeComposition(tx *gorm.DB, recipeID uint64, in RecipeInput) error {
	lines := make([]db.RecipeIngredient, len(in.Ingredients))
	for i, item := range in.Ingredients {
		lines[i] = db.RecipeIngredient{
			RecipeID:     recipeID,
			IngredientID: item.ID,
			Amount:       item.Amount,
		}
	}
	if err := tx.Omit("Recipe", "Ingredient").Create(&lines).Error; err != nil {
		if errors.Is(err, gorm.ErrForeignKeyViolated) {
			return fieldErr("ingredients", ErrNotFound, "ingredient no longer exists")
		}
		return errors.Wrap(err, "insert recipe ingredients")
	}

	links := make([]db.RecipeTag, len(in.Tags))
	for i, id := range in.Tags {
		links[i] = db.RecipeTag{RecipeID: recipeID, TagID: id}
	}
	if err := tx.Omit("Recipe", "Tag").Create(&links).Error; err != nil {
		if errors.Is(err, gorm.ErrForeignKeyViolated) {
			return fieldErr("tags", ErrNotFound, "tag no longer exists")
		}
		return errors.Wrap(err, "insert recipe tags")
	}
	return nil
}

func translateRecipeWrite(err error, name string) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return fieldErr("name", ErrDuplicateRecipeName, "you already have a recipe named %q", name)
	}
	return errors.Wrap(err, "write recipe")
}

// ownedRecipe loads the recipe and checks the viewer authored it.
func ownedRecipe(tx *gorm.DB, viewer *db.User, recipeID uint64) (*db.Recipe, error) {
	recipe := db.Recipe{}
	if err := tx.First(&recipe, recipeID).Error; err != nil {
		return nil, notFound(err, "recipe", "recipe not found")
	}
	if recipe.AuthorID != viewer.ID {
		return nil, errors.Wrapf(ErrForbidden, "recipe %d belongs to another user", recipeID)
	}
	return &recipe, nil
}
