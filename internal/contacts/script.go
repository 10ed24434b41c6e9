package contacts

// birthdayScript is run with `osascript -l JavaScript`. It prints a JSON array
// of {name, birthday} objects for every person with a birth date, the date
// built from local calendar components so no timezone shift can move a day.
const birthdayScript = `
var app = Application("Contacts");
var names = app.people.name();
var dates = app.people.birthDate();
var pad = function (n) { return (n < 10 ? "0" : "") + n; };
var out = [];
for (var i = 0; i < names.length; i++) {
	var d = dates[i];
	if (!d) {
		continue;
	}
	var year = ("000" + d.getFullYear()).slice(-4);
	out.push({
		name: names[i],
		birthday: year + "-" + pad(d.getMonth() + 1) + "-" + pad(d.getDate())
	});
}
JSON.stringify(out);
`
