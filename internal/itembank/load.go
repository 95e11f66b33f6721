package itembank

import (
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/abhisek/tierloop/internal/curriculum"
	"github.com/abhisek/tierloop/internal/logger"
	"github.com/abhisek/tierloop/internal/problemgen"
)

//go:embed bank/default.yaml
var defaultBank embed.FS

// document is the on-disk bank format.
type document struct {
	Lessons   []curriculum.Lesson `yaml:"lessons"`
	Questions []questionDoc       `yaml:"questions"`
}

type questionDoc struct {
	ID          string   `yaml:"id"`
	Lesson      string   `yaml:"lesson"`
	Tier        string   `yaml:"tier"`
	Prompt      string   `yaml:"prompt"`
	Choices     []string `yaml:"choices"`
	Answer      int      `yaml:"answer"`
	Explanation string   `yaml:"explanation"`
	Theory      string   `yaml:"theory"`
}

// Default loads the embedded reference bank.
func Default(log *logger.Logger) (*Bank, error) {
	data, err := defaultBank.ReadFile("bank/default.yaml")
	if err != nil {
		return nil, fmt.Errorf("read embedded bank: %w", err)
	}
	docs, err := parse("default.yaml", data)
	if err != nil {
		return nil, err
	}
	return build([]document{docs}, 1, log)
}

// Load reads a bank from a YAML file or from every *.yaml / *.yml file
// under a directory, in lexical path order. An empty path loads the
// embedded default.
func Load(path string, log *logger.Logger) (*Bank, error) {
	if path == "" {
		return Default(log)
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat bank: %w", err)
	}

	var files []string
	if info.IsDir() {
		err = filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() && (strings.HasSuffix(p, ".yaml") || strings.HasSuffix(p, ".yml")) {
				files = append(files, p)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("walk bank dir: %w", err)
		}
	} else {
		files = []string{path}
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no bank files under %s", path)
	}

	docs := make([]document, 0, len(files))
	for _, f := range files {
		data, err := os.ReadFile(f)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", f, err)
		}
		doc, err := parse(f, data)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return build(docs, len(files), log)
}

func parse(name string, data []byte) (document, error) {
	var raw any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return document{}, fmt.Errorf("parse %s: %w", name, err)
	}
	if err := checkDocument(raw); err != nil {
		return document{}, fmt.Errorf("invalid bank file %s: %w", name, err)
	}
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return document{}, fmt.Errorf("decode %s: %w", name, err)
	}
	return doc, nil
}

func build(docs []document, files int, log *logger.Logger) (*Bank, error) {
	log = logger.OrNop(log)

	var lessons []curriculum.Lesson
	var questions []problemgen.Question
	badTier := 0
	for _, d := range docs {
		lessons = append(lessons, d.Lessons...)
		for _, qd := range d.Questions {
			tier, err := curriculum.ParseTier(qd.Tier)
			if err != nil {
				badTier++
				continue
			}
			questions = append(questions, problemgen.Question{
				ID:           qd.ID,
				LessonID:     qd.Lesson,
				Tier:         tier,
				Prompt:       strings.TrimSpace(qd.Prompt),
				Choices:      qd.Choices,
				CorrectIndex: qd.Answer,
				Explanation:  strings.TrimSpace(qd.Explanation),
				Theory:       strings.TrimSpace(qd.Theory),
			})
		}
	}
	if len(lessons) == 0 {
		return nil, fmt.Errorf("bank defines no lessons")
	}

	b := New(lessons, questions)
	b.stats.Files = files
	if badTier > 0 {
		b.stats.Dropped["unknown tier"] += badTier
	}

	for _, reason := range b.stats.DropReasons() {
		log.Warn("dropped bank questions", "reason", reason, "count", b.stats.Dropped[reason])
	}
	log.Info("item bank loaded", "files", files, "lessons", b.stats.Lessons, "questions", b.stats.Questions)
	return b, nil
}
