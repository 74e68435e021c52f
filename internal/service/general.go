package service

import (
	"context"
	"regexp"
	"strings"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/Rogue-Bear-Innovations/recipebook-back/internal/db"
)

const defaultBcryptCost = 14

var usernamePattern = regexp.MustCompile(`^[\w.@+-]+$`)

type (
	RegisterInput struct {
		Email     string
		Username  string
		FirstName string
		LastName  string
		Password  string
	}

	// AuthorView is a followed author with a preview of their recipes.
	AuthorView struct {
		UserView
		Recipes      []MiniRecipe
		RecipesCount int64
	}
)

// General owns accounts, auth tokens and follows.
type General struct {
	db         *gorm.DB
	logger     *zap.SugaredLogger
	bcryptCost int
}

func NewGeneral(db *gorm.DB, l *zap.SugaredLogger) *General {
	return &General{
		db:         db,
		logger:     l,
		bcryptCost: defaultBcryptCost,
	}
}

// ValidUsername reports whether name can be registered.
func ValidUsername(name string) bool {
	return name != db.ReservedUsername && usernamePattern.MatchString(name)
}

func (s *General) Register(ctx context.Context, in RegisterInput) (*UserView, error) {
	in.Email = strings.TrimSpace(in.Email)
	if in.Email == "" {
		return nil, fieldErr("email", ErrRequired, "email is required")
	}
	if !ValidUsername(in.Username) {
		return nil, fieldErr("username", ErrInvalidUsername, "username %q is not allowed", in.Username)
	}
	if in.Password == "" {
		return nil, fieldErr("password", ErrRequired, "password is required")
	}

	hash, err := s.bcryptGen(in.Password)
	if err != nil {
		return nil, errors.Wrap(err, "bcryptGen")
	}
	user := db.User{
		Email:     in.Email,
		Username:  in.Username,
		FirstName: in.FirstName,
		LastName:  in.LastName,
		Password:  hash,
	}
	if err := s.db.WithContext(ctx).Create(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, s.duplicateAccount(ctx, in)
		}
		return nil, errors.Wrap(err, "create user")
	}

	s.logger.Infow("user registered", "user_id", user.ID)
	return &UserView{
		ID:        user.ID,
		Email:     user.Email,
		Username:  user.Username,
		FirstName: user.FirstName,
		LastName:  user.LastName,
	}, nil
}

// duplicateAccount names the field that collided on registration.
func (s *General) duplicateAccount(ctx context.Context, in RegisterInput) error {
	var n int64
	if err := s.db.WithContext(ctx).Model(&db.User{}).Where("email = ?", in.Email).Count(&n).Error; err == nil && n > 0 {
		return fieldErr("email", ErrAlreadyExists, "a user with this email already exists")
	}
	return fieldErr("username", ErrAlreadyExists, "a user with this username already exists")
}

// Login checks the credentials and issues a new token.
func (s *General) Login(ctx context.Context, email, pass string) (string, error) {
	user := db.User{}
	if err := s.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", ErrLoginUserNotFound
		}
		return "", errors.Wrap(err, "find user")
	}

	if err := s.bcryptCheck(user.Password, pass); err != nil {
		return "", ErrLoginPasswordDoesNotMatch
	}

	token := db.Token{
		Key:    uuid.New().String(),
		UserID: user.ID,
	}
	if err := s.db.WithContext(ctx).Omit("User").Create(&token).Error; err != nil {
		return "", errors.Wrap(err, "create token")
	}

	return token.Key, nil
}

func (s *General) Logout(ctx context.Context, token string) error {
	if err := s.db.WithContext(ctx).Where("key = ?", token).Delete(&db.Token{}).Error; err != nil {
		return errors.Wrap(err, "delete token")
	}
	return nil
}

// UserByToken resolves an auth token to its owner.
func (s *General) UserByToken(ctx context.Context, token string) (*db.User, error) {
	user := db.User{}
	err := s.db.WithContext(ctx).
		Joins("JOIN tokens t ON t.user_id = users.id").
		Where("t.key = ?", token).
		First(&user).Error
	if err != nil {
		return nil, notFound(err, "token", "invalid token")
	}
	return &user, nil
}

func (s *General) SetPassword(ctx context.Context, user *db.User, current, next string) error {
	if next == "" {
		return fieldErr("new_password", ErrRequired, "new password is required")
	}
	if err := s.bcryptCheck(user.Password, current); err != nil {
		return fieldErr("current_password", ErrWrongPassword, "current password is incorrect")
	}

	hash, err := s.bcryptGen(next)
	if err != nil {
		return errors.Wrap(err, "bcryptGen")
	}
	if err := s.db.WithContext(ctx).Model(user).Update("password", hash).Error; err != nil {
		return errors.Wrap(err, "update password")
	}
	return nil
}

func userSelect(viewerID uint64) squirrel.SelectBuilder {
	q := squirrel.
		Select("u.id", "u.email", "u.username", "u.first_name", "u.last_name").
		From("users u")
	if viewerID == Anonymous {
		return q.Column("FALSE AS is_subscribed")
	}
	return q.Column("EXISTS (SELECT 1 FROM follows fo WHERE fo.author_id = u.id AND fo.user_id = ?) AS is_subscribed", viewerID)
}

func (s *General) queryUsers(ctx context.Context, q squirrel.SelectBuilder) ([]UserView, error) {
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "build sql")
	}

	users := make([]UserView, 0)
	if err := s.db.WithContext(ctx).Raw(sql, args...).Scan(&users).Error; err != nil {
		return nil, errors.Wrap(err, "scan users")
	}
	return users, nil
}

func (s *General) GetUser(ctx context.Context, viewerID, userID uint64) (*UserView, error) {
	users, err := s.queryUsers(ctx, userSelect(viewerID).Where(squirrel.Eq{"u.id": userID}))
	if err != nil {
		return nil, err
	}
	if len(users) == 0 {
		return nil, fieldErr("user", ErrNotFound, "user not found")
	}
	return &users[0], nil
}

func (s *General) ListUsers(ctx context.Context, viewerID uint64, p Page) ([]UserView, int64, error) {
	var total int64
	if err := s.db.WithContext(ctx).Model(&db.User{}).Count(&total).Error; err != nil {
		return nil, 0, errors.Wrap(err, "count users")
	}

	q := userSelect(viewerID).OrderBy("u.id")
	if p.Limit > 0 {
		q = q.Limit(uint64(p.Limit)).Offset(uint64(p.Offset))
	}
	users, err := s.queryUsers(ctx, q)
	if err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

// Subscribe makes user follow the author. Following yourself and following
// twice are both conflicts.
func (s *General) Subscribe(ctx context.Context, user *db.User, authorID uint64, recipesLimit int) (*AuthorView, error) {
	if user.ID == authorID {
		return nil, fieldErr("author", ErrSelfFollow, "you cannot subscribe to yourself")
	}

	err := s.db.WithContext(ctx).Omit("User", "Author").Create(&db.Follow{UserID: user.ID, AuthorID: authorID}).Error
	switch {
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return nil, fieldErr("author", ErrAlreadyExists, "you are already subscribed to this author")
	case errors.Is(err, gorm.ErrForeignKeyViolated):
		return nil, fieldErr("author", ErrNotFound, "author not found")
	case err != nil:
		return nil, errors.Wrap(err, "create follow")
	}

	author, err := s.GetUser(ctx, user.ID, authorID)
	if err != nil {
		return nil, err
	}
	views, err := s.withRecipes(ctx, []UserView{*author}, recipesLimit)
	if err != nil {
		return nil, err
	}
	return &views[0], nil
}

func (s *General) Unsubscribe(ctx context.Context, user *db.User, authorID uint64) error {
	if _, err := s.GetUser(ctx, user.ID, authorID); err != nil {
		return err
	}

	res := s.db.WithContext(ctx).
		Where("user_id = ? AND author_id = ?", user.ID, authorID).
		Delete(&db.Follow{})
	if res.Error != nil {
		return errors.Wrap(res.Error, "delete follow")
	}
	if res.RowsAffected == 0 {
		return fieldErr("author", ErrNotFound, "you are not subscribed to this author")
	}
	return nil
}

// Subscriptions lists the authors user follows, each with up to recipesLimit
// of their newest recipes (all of them when recipesLimit <= 0).
func (s *General) Subscriptions(ctx context.Context, user *db.User, p Page, recipesLimit int) ([]AuthorView, int64, error) {
	var total int64
	if err := s.db.WithContext(ctx).Model(&db.Follow{}).Where("user_id = ?", user.ID).Count(&total).Error; err != nil {
		return nil, 0, errors.Wrap(err, "count follows")
	}

	q := squirrel.
		Select("u.id", "u.email", "u.username", "u.first_name", "u.last_name", "TRUE AS is_subscribed").
		From("follows fo").
		Join("users u ON u.id = fo.author_id").
		Where(squirrel.Eq{"fo.user_id": user.ID}).
		OrderBy("fo.id")
	if p.Limit > 0 {
		q = q.Limit(uint64(p.Limit)).Offset(uint64(p.Offset))
	}
	authors, err := s.queryUsers(ctx, q)
	if err != nil {
		return nil, 0, err
	}

	views, err := s.withRecipes(ctx, authors, recipesLimit)
	if err != nil {
		return nil, 0, err
	}
	return views, total, nil
}

// withRecipes attaches recipe previews and counts with two queries for the
// whole batch of authors.
func (s *General) withRecipes(ctx context.Context, authors []UserView, limit int) ([]AuthorView, error) {
	views := make([]AuthorView, len(authors))
	if len(authors) == 0 {
		return views, nil
	}

	ids := make([]uint64, len(authors))
	for i := range authors {
		ids[i] = authors[i].ID
	}

	type countRow struct {
		AuthorID uint64
		Total    int64
	}
	sql, args, err := squirrel.
		Select("author_id", "COUNT(*) AS total").
		From("recipes").
		Where(squirrel.Eq{"author_id": ids}).
		GroupBy("author_id").
		ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "build sql")
	}
	counts := make([]countRow, 0)
	if err := s.db.WithContext(ctx).Raw(sql, args...).Scan(&counts).Error; err != nil {
		return nil, errors.Wrap(err, "count recipes")
	}

	ranked := squirrel.
		Select("r.id", "r.author_id", "r.name", "r.image", "r.cooking_time", "r.pub_date",
			"ROW_NUMBER() OVER (PARTITION BY r.author_id ORDER BY r.pub_date DESC, r.id DESC) AS rn").
		From("recipes r").
		Where(squirrel.Eq{"r.author_id": ids})
	q := squirrel.
		Select("id", "author_id", "name", "image", "cooking_time").
		FromSelect(ranked, "ranked").
		OrderBy("author_id", "rn")
	if limit > 0 {
		q = q.Where(squirrel.LtOrEq{"rn": limit})
	}
	sql, args, err = q.ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "build sql")
	}

	type previewRow struct {
		MiniRecipe
		AuthorID uint64
	}
	rows := make([]previewRow, 0)
	if err := s.db.WithContext(ctx).Raw(sql, args...).Scan(&rows).Error; err != nil {
		return nil, errors.Wrap(err, "scan recipes")
	}

	byAuthor := make(map[uint64][]MiniRecipe, len(authors))
	for _, r := range rows {
		byAuthor[r.AuthorID] = append(byAuthor[r.AuthorID], r.MiniRecipe)
	}
	countByAuthor := make(map[uint64]int64, len(counts))
	for _, c := range counts {
		countByAuthor[c.AuthorID] = c.Total
	}

	for i, a := range authors {
		recipes := byAuthor[a.ID]
		if recipes == nil {
			recipes = []MiniRecipe{}
		}
		views[i] = AuthorView{
			UserView:     a,
			Recipes:      recipes,
			RecipesCount: countByAuthor[a.ID],
		}
	}
	return views, nil
}

func (s *General) bcryptGen(pass string) (string, error) {
	passwordHashB, err := bcrypt.GenerateFromPassword([]byte(pass), s.bcryptCost)
	if err != nil {
		return "", errors.Wrap(err, "generate password hash")
	}
	return string(passwordHashB), nil
}

func (s *General) bcryptCheck(hash, pass string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(pass))
}
