package textnorm

// defaultHomoglyphs returns a mapping of common confusable characters
// (visually identical letters from other scripts, most often Cyrillic)
// to their Latin equivalents, so evasion attempts that substitute
// look-alike characters still normalize to the same text.
func defaultHomoglyphs() map[rune]rune {
	return map[rune]rune{
		'а': 'a', // Cyrillic а U+0430
		'е': 'e', // Cyrillic е U+0435
		'о': 'o', // Cyrillic о U+043E
		'р': 'p', // Cyrillic р U+0440
		'с': 'c', // Cyrillic с U+0441
		'у': 'y', // Cyrillic у U+0443
		'х': 'x', // Cyrillic х U+0445
		'і': 'i', // Cyrillic і U+0456
		'ѕ': 's', // Cyrillic ѕ U+0455
		'ј': 'j', // Cyrillic ј U+0458
		'А': 'A',
		'В': 'B',
		'Е': 'E',
		'К': 'K',
		'М': 'M',
		'Н': 'H',
		'О': 'O',
		'Р': 'P',
		'С': 'C',
		'Т': 'T',
		'Х': 'X',
		'ℓ': 'l',
		'𝟎': '0',
	}
}
