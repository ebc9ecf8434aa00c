// Package lesson defines statically authored lessons and loads them from YAML.
package lesson

// SegmentType distinguishes lecture content from quiz questions.
type SegmentType string

const (
	SegmentLecture SegmentType = "lecture"
	SegmentQuiz    SegmentType = "quiz"
)

// Lesson is an ordered sequence of segments. Lessons are never mutated after loading.
type Lesson struct {
	ID                string    `yaml:"id" json:"id"`
	Title             string    `yaml:"title" json:"title"`
	EstimatedDuration string    `yaml:"estimated_duration" json:"estimatedDuration"`
	Intro             string    `yaml:"intro" json:"intro"`
	Segments          []Segment `yaml:"segments" json:"segments"`
}

// Segment is one unit of lesson content, either a lecture or a quiz.
type Segment struct {
	ID       string      `yaml:"id" json:"id"`
	Type     SegmentType `yaml:"type" json:"type"`
	Title    string      `yaml:"title" json:"title"`
	Duration string      `yaml:"duration,omitempty" json:"duration,omitempty"`

	// Lecture fields.
	Speaker          string   `yaml:"speaker,omitempty" json:"speaker,omitempty"`
	Hero             string   `yaml:"hero,omitempty" json:"hero,omitempty"`
	MediaPlaceholder string   `yaml:"media_placeholder,omitempty" json:"mediaPlaceholder,omitempty"`
	Video            *Video   `yaml:"video,omitempty" json:"video,omitempty"`
	Transcript       []string `yaml:"transcript,omitempty" json:"transcript,omitempty"`
	KeyPoints        []string `yaml:"key_points,omitempty" json:"keyPoints,omitempty"`

	// Quiz fields.
	Question    string   `yaml:"question,omitempty" json:"question,omitempty"`
	Options     []Option `yaml:"options,omitempty" json:"options,omitempty"`
	Answer      string   `yaml:"answer,omitempty" json:"answer,omitempty"`
	Explanation string   `yaml:"explanation,omitempty" json:"explanation,omitempty"`
}

// Option is a single choice of a quiz segment.
type Option struct {
	Key  string `yaml:"key" json:"key"`
	Text string `yaml:"text" json:"text"`
}

// Video points at embeddable lecture media.
type Video struct {
	Src   string `yaml:"src" json:"src"`
	Title string `yaml:"title" json:"title"`
}

// Len returns the number of segments.
func (l *Lesson) Len() int {
	return len(l.Segments)
}

// LastIndex returns the index of the final segment, or -1 for an empty lesson.
func (l *Lesson) LastIndex() int {
	return len(l.Segments) - 1
}

// SegmentByID returns the segment with the given id and its position.
func (l *Lesson) SegmentByID(id string) (Segment, int, bool) {
	for i, seg := range l.Segments {
		if seg.ID == id {
			return seg, i, true
		}
	}
	return Segment{}, -1, false
}

// Quizzes returns the quiz segments in lesson order.
func (l *Lesson) Quizzes() []Segment {
	var quizzes []Segment
	for _, seg := range l.Segments {
		if seg.IsQuiz() {
			quizzes = append(quizzes, seg)
		}
	}
	return quizzes
}

func (s Segment) IsQuiz() bool {
	return s.Type == SegmentQuiz
}

// HasOption reports whether key is one of the segment's option keys.
func (s Segment) HasOption(key string) bool {
	for _, opt := range s.Options {
		if opt.Key == key {
			return true
		}
	}
	return false
}

// OptionText returns the text of the option with the given key.
func (s Segment) OptionText(key string) string {
	for _, opt := range s.Options {
		if opt.Key == key {
			return opt.Text
		}
	}
	return ""
}
