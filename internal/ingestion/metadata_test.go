package ingestion

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInferTitle(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		source string
		want   string
	}{
		{name: "constitution file", source: "data/constitution.pdf", want: "Constitution of India"},
		{name: "constitution glued", source: "ConstitutionOfIndia.pdf", want: "Constitution of India"},
		{name: "bns", source: "/corpus/BNS_2023.pdf", want: "Bharatiya Nyaya Sanhita, 2023"},
		{name: "bnss not bns", source: "bnss.pdf", want: "Bharatiya Nagarik Suraksha Sanhita, 2023"},
		{name: "bsa", source: "bsa-2023.pdf", want: "Bharatiya Sakshya Adhiniyam, 2023"},
		{name: "consumer", source: "consumer_protection_act_2019.pdf", want: "Consumer Protection Act, 2019"},
		{name: "motor vehicles", source: "Motor-Vehicles-Act-1988.pdf", want: "Motor Vehicles Act, 1988"},
		{name: "it act", source: "it_act_2000.pdf", want: "Information Technology Act, 2000"},
		{name: "posh", source: "POSH_Act.pdf", want: "The Sexual Harassment of Women at Workplace (Prevention, Prohibition and Redressal) Act, 2013"},
		{name: "pocso url", source: "https://example.gov.in/acts/pocso.pdf", want: "The Protection of Children from Sexual Offences Act, 2012"},
		{name: "unknown humanised", source: "rti_act-2005.txt", want: "Rti Act 2005"},
		{name: "bare host", source: "https://indiacode.nic.in/", want: "Indiacode Nic In"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.want, InferTitle(tc.source))
		})
	}
}

func TestDetectSection(t *testing.T) {
	t.Parallel()

	tests := []struct {
		text string
		want string
	}{
		{"Section 103. Punishment for murder.", "Section 103"},
		{"under sec. 66a of the Act", "Section 66A"},
		{"Article 21. Protection of life and personal liberty", "Article 21"},
		{"Art.14 Equality before law", "Article 14"},
		{"No heading in this chunk.", ""},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, DetectSection(tc.text), tc.text)
	}
}
