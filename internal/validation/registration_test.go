package validation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateRegistration(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name     string
		username string
		email    string
		password string
		wantErr  string
	}{
		{"reader signup", "margin_notes", "reader@example.com", "Tr0ub4dor&3xyz", ""},
		{"reserved moderator handle", "Moderator", "mod@example.com", "Tr0ub4dor&3xyz", "reserved"},
		{"tombstone placeholder", "deleted", "ghost@example.com", "Tr0ub4dor&3xyz", "reserved"},
		{"reserved word inside a handle is fine", "deleted_scenes", "films@example.com", "Tr0ub4dor&3xyz", ""},
		{"password contains username", "bioinformer", "bio@example.com", "MyBioInformer#1", "username"},
		{"password contains email local part", "genomics", "dereck.lab@example.com", "Dereck.Lab2024!", "email"},
		{"short local part ignored", "quill", "me@example.com", "Awesome-Me-2024", ""},
		{"weak password", "quill", "quill@example.com", "password", "at least 12"},
		{"bad email", "quill", "quill@", "Tr0ub4dor&3xyz", "invalid email"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateRegistration(tt.username, tt.email, tt.password)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestValidatePassword(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name     string
		password string
		wantErr  bool
	}{
		{"mixed classes", "Comment-Thread-9", false},
		{"boundary lengths", "Abcdefghij1!", false},
		{"max length", "A" + strings.Repeat("b", 125) + "1!", false},
		{"one under minimum", "Abcdefghi1!", true},
		{"one over maximum", "A" + strings.Repeat("b", 126) + "1!", true},
		{"lowercase only letters", "thread-reply-9", true},
		{"uppercase only letters", "THREAD-REPLY-9", true},
		{"no digit", "Thread-Reply!", true},
		{"no special", "ThreadReply99", true},
		{"non-ascii letters count", "Ærøskøbing-Notes1", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePassword(tt.password)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateUsername(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name     string
		username string
		wantErr  bool
	}{
		{"handle", "margin_notes", false},
		{"hyphenated", "late-reader", false},
		{"too short", "ab", true},
		{"too long", strings.Repeat("r", 31), true},
		{"at sign", "reader@home", true},
		{"leading hyphen", "-reader", true},
		{"trailing underscore", "reader_", true},
		{"reserved any case", "ADMIN", true},
		{"anonymous", "anonymous", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateUsername(tt.username)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateEmail(t *testing.T) {
	t.Parallel()
	emailAt254 := strings.Repeat("a", 64) + "@" + strings.Repeat("b", 185) + ".com"
	tests := []struct {
		name    string
		email   string
		wantErr bool
	}{
		{"plain", "reader@derecksnotes.com", false},
		{"plus tag", "reader+comments@example.com", false},
		{"at length limit", emailAt254, false},
		{"over length limit", "a" + emailAt254, true},
		{"no at", "reader.example.com", true},
		{"double at", "reader@@example.com", true},
		{"trailing dot", "reader@example.com.", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateEmail(tt.email)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
