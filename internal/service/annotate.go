package service

import (
	"context"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/pkg/errors"

	"github.com/Rogue-Bear-Innovations/recipebook-back/internal/db"
)

// Anonymous is the viewer id of an unauthenticated request.
const Anonymous uint64 = 0

type (
	UserView struct {
		ID           uint64
		Email        string
		Username     string
		FirstName    string
		LastName     string
		IsSubscribed bool
	}

	IngredientLine struct {
		ID              uint64
		Name            string
		MeasurementUnit string
		Amount          int
	}

	RecipeView struct {
		ID               uint64
		Author           UserView
		Name             string
		Image            string
		Text             string
		CookingTime      int
		PubDate          time.Time
		Tags             []db.Tag
		Ingredients      []IngredientLine
		IsFavorited      bool
		IsInShoppingCart bool
	}

	RecipeFilter struct {
		AuthorID         uint64
		TagSlugs         []string
		IsFavorited      bool
		IsInShoppingCart bool
	}

	Page struct {
		Limit  int
		Offset int
	}
)

// recipeRow is one row of the annotated recipe projection.
type recipeRow struct {
	ID                 uint64
	AuthorID           uint64
	Name               string
	Image              string
	Text               string
	CookingTime        int
	PubDate            time.Time
	AuthorEmail        string
	AuthorUsername     string
	AuthorFirstName    string
	AuthorLastName     string
	AuthorIsSubscribed bool
	IsFavorited        bool
	IsInShoppingCart   bool
}

// AnnotateViewerState adds the is_favorited and is_in_shopping_cart columns to
// a select over "recipes r", plus author_is_subscribed when "users u" is the
// joined author. Each flag is a correlated EXISTS against the viewer's own
// rows, so the number of queries does not depend on the number of recipes.
// An anonymous viewer gets constant FALSE columns.
func AnnotateViewerState(q squirrel.SelectBuilder, viewerID uint64) squirrel.SelectBuilder {
	if viewerID == Anonymous {
		return q.
			Column("FALSE AS is_favorited").
			Column("FALSE AS is_in_shopping_cart").
			Column("FALSE AS author_is_subscribed")
	}
	return q.
		Column("EXISTS (SELECT 1 FROM favorites f WHERE f.recipe_id = r.id AND f.user_id = ?) AS is_favorited", viewerID).
		Column("EXISTS (SELECT 1 FROM shopping_carts sc WHERE sc.recipe_id = r.id AND sc.user_id = ?) AS is_in_shopping_cart", viewerID).
		Column("EXISTS (SELECT 1 FROM follows fo WHERE fo.author_id = r.author_id AND fo.user_id = ?) AS author_is_subscribed", viewerID)
}

func recipeSelect(viewerID uint64) squirrel.SelectBuilder {
	q := squirrel.
		Select(
			"r.id", "r.author_id", "r.name", "r.image", "r.text", "r.cooking_time", "r.pub_date",
			"u.email AS author_email", "u.username AS author_username",
			"u.first_name AS author_first_name", "u.last_name AS author_last_name",
		).
		From("recipes r").
		Join("users u ON u.id = r.author_id")
	return AnnotateViewerState(q, viewerID)
}

// applyRecipeFilter narrows a select over "recipes r".
func applyRecipeFilter(q squirrel.SelectBuilder, viewerID uint64, f RecipeFilter) (squirrel.SelectBuilder, error) {
	if f.AuthorID != 0 {
		q = q.Where(squirrel.Eq{"r.author_id": f.AuthorID})
	}
	if len(f.TagSlugs) != 0 {
		sub, args, err := squirrel.
			Select("1").From("recipe_tags rt").
			Join("tags t ON t.id = rt.tag_id").
			Where("rt.recipe_id = r.id").
			Where(squirrel.Eq{"t.slug": f.TagSlugs}).
			ToSql()
		if err != nil {
			return q, errors.Wrap(err, "build tag filter")
		}
		q = q.Where("EXISTS ("+sub+")", args...)
	}
	if f.IsFavorited || f.IsInShoppingCart {
		if viewerID == Anonymous {
			return q.Where("1 = 0"), nil
		}
		if f.IsFavorited {
			q = q.Where("EXISTS (SELECT 1 FROM favorites ff WHERE ff.recipe_id = r.id AND ff.user_id = ?)", viewerID)
		}
		if f.IsInShoppingCart {
			q = q.Where("EXISTS (SELECT 1 FROM shopping_carts fc WHERE fc.recipe_id = r.id AND fc.user_id = ?)", viewerID)
		}
	}
	return q, nil
}

// ListRecipes returns a page of recipes, newest first, annotated for the
// viewer, and the total number of recipes matching the filter.
func (s *Recipes) ListRecipes(ctx context.Context, viewerID uint64, f RecipeFilter, p Page) ([]RecipeView, int64, error) {
	countQ, err := applyRecipeFilter(squirrel.Select("COUNT(*)").From("recipes r"), viewerID, f)
	if err != nil {
		return nil, 0, err
	}
	sql, args, err := countQ.ToSql()
	if err != nil {
		return nil, 0, errors.Wrap(err, "build sql")
	}
	var total int64
	if err := s.db.WithContext(ctx).Raw(sql, args...).Scan(&total).Error; err != nil {
		return nil, 0, errors.Wrap(err, "count recipes")
	}

	q, err := applyRecipeFilter(recipeSelect(viewerID), viewerID, f)
	if err != nil {
		return nil, 0, err
	}
	q = q.OrderBy("r.pub_date DESC", "r.id DESC")
	if p.Limit > 0 {
		q = q.Limit(uint64(p.Limit)).Offset(uint64(p.Offset))
	}

	views, err := s.queryRecipes(ctx, q)
	if err != nil {
		return nil, 0, err
	}
	return views, total, nil
}

func (s *Recipes) GetRecipe(ctx context.Context, viewerID, recipeID uint64) (*RecipeView, error) {
	views, err := s.queryRecipes(ctx, recipeSelect(viewerID).Where(squirrel.Eq{"r.id": recipeID}))
	if err != nil {
		return nil, err
	}
	if len(views) == 0 {
		return nil, fieldErr("recipe", ErrNotFound, "recipe not found")
	}
	return &views[0], nil
}

// queryRecipes runs the annotated select and nests tags and ingredients with
// one extra query each.
func (s *Recipes) queryRecipes(ctx context.Context, q squirrel.SelectBuilder) ([]RecipeView, error) {
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "build sql")
	}

	rows := make([]recipeRow, 0)
	if err := s.db.WithContext(ctx).Raw(sql, args...).Scan(&rows).Error; err != nil {
		return nil, errors.Wrap(err, "scan recipes")
	}
	if len(rows) == 0 {
		return []RecipeView{}, nil
	}

	ids := make([]uint64, len(rows))
	for i := range rows {
		ids[i] = rows[i].ID
	}
	tags, err := s.tagsByRecipe(ctx, ids)
	if err != nil {
		return nil, err
	}
	lines, err := s.ingredientsByRecipe(ctx, ids)
	if err != nil {
		return nil, err
	}

	views := make([]RecipeView, len(rows))
	for i, r := range rows {
		views[i] = RecipeView{
			ID: r.ID,
			Author: UserView{
				ID:           r.AuthorID,
				Email:        r.AuthorEmail,
				Username:     r.AuthorUsername,
				FirstName:    r.AuthorFirstName,
				LastName:     r.AuthorLastName,
				IsSubscribed: r.AuthorIsSubscribed,
			},
			Name:             r.Name,
			Image:            r.Image,
			Text:             r.Text,
			CookingTime:      r.CookingTime,
			PubDate:          r.PubDate,
			Tags:             nonNilTags(tags[r.ID]),
			Ingredients:      nonNilLines(lines[r.ID]),
			IsFavorited:      r.IsFavorited,
			IsInShoppingCart: r.IsInShoppingCart,
		}
	}
	return views, nil
}

func (s *Recipes) tagsByRecipe(ctx context.Context, recipeIDs []uint64) (map[uint64][]db.Tag, error) {
	type tagRow struct {
		RecipeID uint64
		ID       uint64
		Name     string
		Color    string
		Slug     string
	}

	sql, args, err := squirrel.
		Select("rt.recipe_id", "t.id", "t.name", "t.color", "t.slug").
		From("recipe_tags rt").
		Join("tags t ON t.id = rt.tag_id").
		Where(squirrel.Eq{"rt.recipe_id": recipeIDs}).
		OrderBy("t.id").
		ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "build sql")
	}

	rows := make([]tagRow, 0)
	if err := s.db.WithContext(ctx).Raw(sql, args...).Scan(&rows).Error; err != nil {
		return nil, errors.Wrap(err, "scan recipe tags")
	}

	res := make(map[uint64][]db.Tag, len(recipeIDs))
	for _, r := range rows {
		tag := db.Tag{Name: r.Name, Color: r.Color, Slug: r.Slug}
		tag.ID = r.ID
		res[r.RecipeID] = append(res[r.RecipeID], tag)
	}
	return res, nil
}

func (s *Recipes) ingredientsByRecipe(ctx context.Context, recipeIDs []uint64) (map[uint64][]IngredientLine, error) {
	type lineRow struct {
		RecipeID        uint64
		ID              uint64
		Name            string
		MeasurementUnit string
		Amount          int
	}

	sql, args, err := squirrel.
		Select("ri.recipe_id", "i.id", "i.name", "i.measurement_unit", "ri.amount").
		From("recipe_ingredients ri").
		Join("ingredients i ON i.id = ri.ingredient_id").
		Where(squirrel.Eq{"ri.recipe_id": recipeIDs}).
		OrderBy("ri.id").
		ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "build sql")
	}

	rows := make([]lineRow, 0)
	if err := s.db.WithContext(ctx).Raw(sql, args...).Scan(&rows).Error; err != nil {
		return nil, errors.Wrap(err, "scan recipe ingredients")
	}

	res := make(map[uint64][]IngredientLine, len(recipeIDs))
	for _, r := range rows {
		res[r.RecipeID] = append(res[r.RecipeID], IngredientLine{
			ID:              r.ID,
			Name:            r.Name,
			MeasurementUnit: r.MeasurementUnit,
			Amount:          r.Amount,
		})
	}
	return res, nil
}

func nonNilTags(tags []db.Tag) []db.Tag {
	if tags == nil {
		return []db.Tag{}
	}
	return tags
}

func nonNilLines(lines []IngredientLine) []IngredientLine {
	if lines == nil {
		return []IngredientLine{}
	}
	return lines
}
