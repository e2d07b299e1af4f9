// Package seed fills a development database with demo readers, threads and a moderation
// backlog. It is intended for development and testing only.
package seed

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/dereckmezquita/derecksnotes.com-sub002/internal/models"
	"github.com/dereckmezquita/derecksnotes.com-sub002/internal/permissions"
	"github.com/dereckmezquita/derecksnotes.com-sub002/internal/repository"

	"github.com/brianvoe/gofakeit/v6"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// DemoPassword is the password of every seeded account.
const DemoPassword = "Demo!Passw0rd-2024"

// Options configuration for the seeder
type Options struct {
	NumUsers       int
	NumPosts       int
	MaxComments    int // top-level comments per post, upper bound
	ReplyChance    float64
	ReactionChance float64
	ReportChance   float64
	ShouldClean    bool
	SkipBcrypt     bool // hash with the minimum cost
	RandomSeed     int64
	Logger         *slog.Logger
}

var sections = []string{"/blog", "/courses", "/references", "/dictionaries"}

// DefaultOptions returns a small, fast preset.
func DefaultOptions() Options {
	return Options{
		NumUsers:       20,
		NumPosts:       8,
		MaxComments:    6,
		ReplyChance:    0.5,
		ReactionChance: 0.3,
		ReportChance:   0.05,
	}
}

// Result counts what a run created.
type Result struct {
	Users     int `json:"users"`
	Posts     int `json:"posts"`
	Comments  int `json:"comments"`
	Reactions int `json:"reactions"`
	Reports   int `json:"reports"`
}

// Seeder writes demo data through the repository layer.
type Seeder struct {
	db    *gorm.DB
	store *repository.Store
	opts  Options
	fake  *gofakeit.Faker
	log   *slog.Logger
}

// NewSeeder creates a Seeder. Zero-valued options fall back to DefaultOptions.
func NewSeeder(db *gorm.DB, opts Options) *Seeder {
	def := DefaultOptions()
	if opts.NumUsers <= 0 {
		opts.NumUsers = def.NumUsers
	}
	if opts.NumPosts <= 0 {
		opts.NumPosts = def.NumPosts
	}
	if opts.MaxComments <= 0 {
		opts.MaxComments = def.MaxComments
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Seeder{
		db:    db,
		store: repository.NewStore(db),
		opts:  opts,
		fake:  gofakeit.New(opts.RandomSeed),
		log:   logger,
	}
}

// Seed populates the database with demo data.
func Seed(ctx context.Context, db *gorm.DB, opts Options) (*Result, error) {
	return NewSeeder(db, opts).Run(ctx)
}

// Demo seeds the given number of users with the default thread mix.
func Demo(ctx context.Context, db *gorm.DB, users int) (*Result, error) {
	opts := DefaultOptions()
	opts.NumUsers = users
	return Seed(ctx, db, opts)
}

// Run executes the seeder. The group catalogue must already be synced.
func (s *Seeder) Run(ctx context.Context) (*Result, error) {
	s.log.Info("seeding database", "users", s.opts.NumUsers, "posts", s.opts.NumPosts)

	if s.opts.ShouldClean {
		if err := s.Clean(ctx); err != nil {
			return nil, fmt.Errorf("clean: %w", err)
		}
	}

	res := &Result{}
	users, err := s.createUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create users: %w", err)
	}
	res.Users = len(users)

	for i := 0; i < s.opts.NumPosts; i++ {
		slug := s.postSlug(i)
		comments, err := s.createThread(ctx, slug, users)
		if err != nil {
			return nil, fmt.Errorf("thread %s: %w", slug, err)
		}
		res.Posts++
		res.Comments += len(comments)

		n, err := s.react(ctx, comments, users)
		if err != nil {
			return nil, fmt.Errorf("reactions on %s: %w", slug, err)
		}
		res.Reactions += n

		n, err = s.report(ctx, comments, users)
		if err != nil {
			return nil, fmt.Errorf("reports on %s: %w", slug, err)
		}
		res.Reports += n
	}

	s.log.Info("seeding complete",
		"users", res.Users, "posts", res.Posts, "comments", res.Comments,
		"reactions", res.Reactions, "reports", res.Reports)
	return res, nil
}

// Clean removes seeded content. Groups, permissions and the audit log are left alone.
func (s *Seeder) Clean(ctx context.Context) error {
	for _, table := range []string{
		"reports", "comment_reactions", "comment_history", "comments", "posts", "user_bans", "users",
	} {
		if err := s.db.WithContext(ctx).Exec("DELETE FROM " + table).Error; err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}
	return nil
}

// groupFor decides each seeded user's group: a fixed moderator and admin, a few trusted
// readers, everyone else in the default group.
func (s *Seeder) groupFor(i int) string {
	switch {
	case i == 0:
		return permissions.GroupAdmin
	case i == 1:
		return permissions.GroupModerator
	case i%5 == 0:
		return permissions.GroupTrusted
	default:
		return permissions.GroupUser
	}
}

func (s *Seeder) createUsers(ctx context.Context) ([]*models.User, error) {
	var groups []models.Group
	if err := s.db.WithContext(ctx).Find(&groups).Error; err != nil {
		return nil, err
	}
	byName := make(map[string]*models.Group, len(groups))
	for i := range groups {
		byName[groups[i].Name] = &groups[i]
	}

	cost := bcrypt.DefaultCost
	if s.opts.SkipBcrypt {
		cost = bcrypt.MinCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(DemoPassword), cost)
	if err != nil {
		return nil, err
	}

	users := make([]*models.User, 0, s.opts.NumUsers)
	for i := 0; i < s.opts.NumUsers; i++ {
		groupName := s.groupFor(i)
		group, ok := byName[groupName]
		if !ok {
			return nil, fmt.Errorf("group %q missing; sync the permission catalogue first", groupName)
		}

		username := s.username(i, groupName)
		user := &models.User{
			Username:    username,
			Email:       username + "@example.com",
			Password:    string(hash),
			DisplayName: s.fake.Name(),
			Bio:         s.fake.Sentence(10),
			GroupID:     group.ID,
		}
		if err := s.store.Users.Create(ctx, user); err != nil {
			return nil, fmt.Errorf("create user %s: %w", username, err)
		}
		user.Group = group
		users = append(users, user)
	}
	return users, nil
}

func (s *Seeder) username(i int, group string) string {
	switch group {
	case permissions.GroupAdmin, permissions.GroupModerator:
		return group
	}
	name := slugWord(s.fake.FirstName())
	if len(name) < 3 {
		name = "reader"
	}
	return fmt.Sprintf("%s%d", name, i)
}

func (s *Seeder) postSlug(i int) string {
	section := sections[i%len(sections)]
	var words []string
	for _, w := range strings.Fields(s.fake.HipsterSentence(3)) {
		if w = slugWord(w); w != "" {
			words = append(words, w)
		}
	}
	words = append(words, fmt.Sprint(i))
	return section + "/" + strings.Join(words, "-")
}

// slugWord lowercases w and drops everything outside [a-z0-9].
func slugWord(w string) string {
	return strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			return r
		}
		return -1
	}, strings.ToLower(w))
}

func (s *Seeder) pick(users []*models.User) *models.User {
	return users[s.fake.Number(0, len(users)-1)]
}

// createThread writes top-level comments and replies for one post. Authors in
// auto-approve groups publish directly; everyone else lands in the approval queue,
// with about half already approved.
func (s *Seeder) createThread(ctx context.Context, slug string, users []*models.User) ([]*models.Comment, error) {
	var out []*models.Comment
	roots := s.fake.Number(1, s.opts.MaxComments)

	var grow func(parent *models.Comment) error
	grow = func(parent *models.Comment) error {
		author := s.pick(users)
		c := &models.Comment{
			AuthorID: author.ID,
			PostSlug: slug,
			Content:  s.fake.Paragraph(1, s.fake.Number(1, 4), 12, " "),
			Approved: author.Group.AutoApprove || s.fake.Bool(),
		}
		if parent != nil {
			c.ParentID = &parent.ID
			c.Depth = parent.Depth + 1
		}
		err := s.store.Transaction(ctx, func(tx *repository.Store) error {
			if err := tx.Comments.Create(ctx, c); err != nil {
				return err
			}
			return tx.Posts.IncrementCommentCount(ctx, slug)
		})
		if err != nil {
			return err
		}
		out = append(out, c)

		if c.Depth < models.MaxCommentDepth && s.fake.Float64() < s.opts.ReplyChance/float64(c.Depth+1) {
			return grow(c)
		}
		return nil
	}

	for i := 0; i < roots; i++ {
		if err := grow(nil); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (s *Seeder) react(ctx context.Context, comments []*models.Comment, users []*models.User) (int, error) {
	n := 0
	for _, c := range comments {
		for _, u := range users {
			if u.ID == c.AuthorID || s.fake.Float64() >= s.opts.ReactionChance {
				continue
			}
			reaction := models.ReactionLike
			if s.fake.Float64() < 0.2 {
				reaction = models.ReactionDislike
			}
			if _, err := s.store.Reactions.Upsert(ctx, c.ID, u.ID, reaction); err != nil {
				return n, err
			}
			n++
		}
	}
	return n, nil
}

func (s *Seeder) report(ctx context.Context, comments []*models.Comment, users []*models.User) (int, error) {
	reasons := make([]string, 0, len(models.ReportReasons))
	for r := range models.ReportReasons {
		reasons = append(reasons, r)
	}
	sort.Strings(reasons)

	n := 0
	for _, c := range comments {
		if s.fake.Float64() >= s.opts.ReportChance {
			continue
		}
		reporter := s.pick(users)
		if reporter.ID == c.AuthorID {
			continue
		}
		err := s.store.Reports.Create(ctx, &models.Report{
			ReporterID: reporter.ID,
			CommentID:  c.ID,
			Reason:     reasons[s.fake.Number(0, len(reasons)-1)],
			Details:    s.fake.Sentence(8),
			Status:     models.ReportStatusPending,
		})
		if err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}
