package models

import (
	"embed"
	"fmt"
	"sort"

	"gopkg.in/yaml.v3"
)

//go:embed config/grades.yaml
var gradesYAML embed.FS

// Grade is one of the fixed skill levels a role can require.
type Grade string

// GradeInfo describes one entry of the grade registry.
type GradeInfo struct {
	ID    Grade  `yaml:"id"`
	Label string `yaml:"label"`
	Rank  int    `yaml:"rank"` // seniority order, ascending
}

type gradeRegistry struct {
	Grades []GradeInfo `yaml:"grades"`
}

var (
	gradeByID map[Grade]GradeInfo
	gradeList []GradeInfo
)

func init() {
	raw, err := gradesYAML.ReadFile("config/grades.yaml")
	if err != nil {
		panic(fmt.Sprintf("grade registry missing: %v", err))
	}

	var reg gradeRegistry
	if err := yaml.Unmarshal(raw, &reg); err != nil {
		panic(fmt.Sprintf("grade registry malformed: %v", err))
	}

	gradeByID = make(map[Grade]GradeInfo, len(reg.Grades))
	for _, g := range reg.Grades {
		gradeByID[g.ID] = g
	}
	gradeList = reg.Grades
	sort.Slice(gradeList, func(i, j int) bool { return gradeList[i].Rank < gradeList[j].Rank })
}

// Grades returns the registry in ascending seniority order.
func Grades() []GradeInfo {
	return gradeList
}

func ParseGrade(s string) (Grade, error) {
	if _, ok := gradeByID[Grade(s)]; !ok {
		return "", fmt.Errorf("unknown grade %q", s)
	}
	return Grade(s), nil
}

// Label returns the display name for a grade, or the raw id if unregistered.
func (g Grade) Label() string {
	if info, ok := gradeByID[g]; ok {
		return info.Label
	}
	return string(g)
}
