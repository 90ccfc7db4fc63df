// Package catalog holds the static institutional tables: schools, their
// departments and the levels each department runs.
// Source: https://legacy.futo.edu.ng/faculties-departments/ (2025/2026).
package catalog

import "sort"

type school struct {
	departments    []string
	levels         []string
	levelsOverride map[string][]string // department -> levels, when it deviates
}

var schools = map[string]school{
	"School of Agriculture and Agricultural Technology (SAAT)": {
		departments: []string{
			"Agribusiness",
			"Agricultural Economics",
			"Agricultural Extension",
			"Animal Science and Technology",
			"Crop Science and Technology",
			"Fisheries and Aquaculture Technology",
			"Forestry and Wildlife Technology",
			"Soil Science and Technology",
		},
		levels: []string{"100", "200", "300", "400", "500"},
	},
	"School of Basic Medical Science (SBMS)": {
		departments: []string{
			"Human Anatomy",
			"Human Physiology",
		},
		levels: []string{"100", "200", "300"},
	},
	"School of Biological Science (SOBS)": {
		departments: []string{
			"Biochemistry",
			"Biology",
			"Biotechnology",
			"Forensic Science",
			"Microbiology",
		},
		levels: []string{"100", "200", "300", "400", "500"},
	},
	"School of Engineering and Engineering Technology (SEET)": {
		departments: []string{
			"Agricultural and Bio Resources Engineering",
			"Biomedical Engineering",
			"Chemical Engineering",
			"Civil Engineering",
			"Food Science and Technology",
			"Material and Metallurgical Engineering",
			"Mechanical Engineering",
			"Petroleum Engineering",
			"Polymer and Textile Engineering",
		},
		levels: []string{"100", "200", "300", "400", "500"},
	},
	"School of Electrical Systems and Engineering Technology (SESET)": {
		departments: []string{
			"Computer Engineering",
			"Electrical (Power Systems) Engineering",
			"Electrical and Electronic Engineering",
			"Electronics Engineering",
			"Mechatronics Engineering",
			"Telecommunications Engineering",
		},
		levels: []string{"100", "200", "300", "400", "500"},
	},
	"School of Environmental Science (SOES)": {
		departments: []string{
			"Architecture",
			"Building Technology",
			"Environmental Management",
			"Environmental Management and Evaluation",
			"Quantity Surveying",
			"Surveying and Geoinformatics",
			"Urban and Regional Planning",
		},
		levels: []string{"100", "200", "300", "400", "500"},
	},
	"School of Health Technology (SOHT)": {
		departments: []string{
			"Dental Technology",
			"Environmental Health Science",
			"Optometry",
			"Prosthetics and Orthotics",
			"Public Health Technology",
		},
		levels: []string{"100", "200", "300", "400"},
		levelsOverride: map[string][]string{
			"Optometry":                    {"100", "200", "300", "400", "500", "600"},
			"Dental Technology":            {"100", "200", "300", "400"},
			"Environmental Health Science": {"100", "200", "300", "400"},
			"Prosthetics and Orthotics":    {"100", "200", "300", "400"},
			"Public Health Technology":     {"100", "200", "300", "400"},
		},
	},
	"School of Information and Communication Technology (SICT)": {
		departments: []string{
			"Computer Science",
			"Cyber Security",
			"Information Technology",
			"Software Engineering",
		},
		levels: []string{"100", "200", "300", "400", "500"},
	},
	"School of Logistics and Innovation Technology (SLIT)": {
		departments: []string{
			"Entrepreneurship and Innovation",
			"Logistics and Transport Technology",
			"Maritime Technology and Logistics",
			"Project Management Technology",
			"Supply Chain Management",
		},
		levels: []string{"100", "200", "300", "400", "500"},
	},
	"School of Physical Science (SOPS)": {
		departments: []string{
			"Chemistry",
			"Geology",
			"Mathematics",
			"Physics",
			"Science Laboratory Technology",
			"Statistics",
		},
		levels: []string{"100", "200", "300", "400"},
	},
}

// Schools returns all school names, sorted.
func Schools() []string {
	names := make([]string, 0, len(schools))
	for name := range schools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Departments returns the departments of a school, or nil for an unknown school.
func Departments(schoolName string) []string {
	if sch, ok := schools[schoolName]; ok {
		return sch.departments
	}
	return nil
}

// Levels returns the levels a department runs, applying per-department
// overrides where a department deviates from its school's default.
func Levels(schoolName, department string) []string {
	sch, ok := schools[schoolName]
	if !ok {
		return nil
	}
	if levels, ok := sch.levelsOverride[department]; ok {
		return levels
	}
	return sch.levels
}
